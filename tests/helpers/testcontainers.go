// testcontainers.go
//
// Build Airtable-backed forms and proxy anonymous submissions into Airtable tables
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of airtable-forms.
// airtable-forms is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// airtable-forms is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with airtable-forms.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

// Helpers for running the service and its database in testcontainers.
// Used by the integration tests and by the standalone cmd/testcontainers executable.
// Settings come from the environment, usually loaded from a .env file.
package helpers

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/localnerve/airtable-forms/data"
	"github.com/localnerve/airtable-forms/internal/config"
	"github.com/localnerve/airtable-forms/internal/database"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

const appImageName = "airtable-forms-test:latest"

type TestContainers struct {
	Network             *testcontainers.DockerNetwork
	DBContainer         testcontainers.Container
	AppContainer        testcontainers.Container
	AppBuilderContainer testcontainers.Container
}

// DBSettings describes a database container and the service account created in it
type DBSettings struct {
	Type         string
	Image        string
	NetworkAlias string
	Port         string
	Database     string
	User         string
	Password     string
	RootPassword string
}

// DBSettingsFromEnv reads the database container settings, filling defaults for dbType.
// An empty dbType uses DB_TYPE.
func DBSettingsFromEnv(dbType string) DBSettings {
	if dbType == "" {
		dbType = envOr("DB_TYPE", "mariadb")
	}
	s := DBSettings{
		Type:         dbType,
		NetworkAlias: envOr("DB_HOST", "db"),
		Database:     envOr("DB_DATABASE", "airforms"),
		User:         envOr("DB_USER", "airforms"),
		Password:     envOr("DB_PASSWORD", "airforms-pass"),
		RootPassword: envOr("DB_ROOT_PASSWORD", "root-pass"),
	}
	switch dbType {
	case "postgres":
		s.Image = envOr("POSTGRES_IMAGE", "postgres:16-alpine")
		s.Port = "5432"
	default:
		s.Image = envOr("DB_IMAGE", "mariadb:11")
		s.Port = "3306"
	}
	return s
}

// Config returns a service configuration pointing at host:port
func (s DBSettings) Config(host, port string) *config.Config {
	return &config.Config{
		DBType:            s.Type,
		DBHost:            host,
		DBPort:            port,
		DBDatabase:        s.Database,
		DBUser:            s.User,
		DBPassword:        s.Password,
		DBConnectionLimit: 5,
	}
}

func (tc *TestContainers) Terminate(t *testing.T) {
	ctx := context.Background()
	if tc.AppContainer != nil {
		if err := tc.AppContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate app: %v", err)
		}
	}
	if tc.AppBuilderContainer != nil {
		if err := tc.AppBuilderContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate app builder: %v", err)
		}
	}
	if tc.DBContainer != nil {
		if err := tc.DBContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate database: %v", err)
		}
	}
	if tc.Network != nil {
		if err := tc.Network.Remove(ctx); err != nil {
			logMessage(t, "Failed to remove network: %v", err)
		}
	}
}

// StartDatabase starts and initializes a standalone database container.
// The returned config reaches it through the mapped host port.
func StartDatabase(t *testing.T, settings DBSettings) (*TestContainers, *config.Config) {
	ctx := context.Background()
	testContainers := &TestContainers{}

	host, port := startDB(ctx, t, testContainers, settings, "")
	return testContainers, settings.Config(host, port.Port())
}

// CreateAllTestContainers starts the database and the service built from the repo Dockerfile
// on a private network.
func CreateAllTestContainers(t *testing.T) (*TestContainers, error) {
	ctx := context.Background()
	testContainers := &TestContainers{}

	debugContainer := os.Getenv("DEBUG_CONTAINER")
	settings := DBSettingsFromEnv("")

	nw, err := network.New(ctx)
	if err != nil {
		exitWithError(t, err, "Failed to create network")
	}
	testContainers.Network = nw
	networkName := nw.Name

	startDB(ctx, t, testContainers, settings, networkName)

	imageExists, err := imageExists(ctx, appImageName)
	if err != nil {
		testContainers.Terminate(t)
		exitWithError(t, err, "Failed to check if image exists")
	}

	appPortNumber := envOr("PORT", "4000")
	tcpAppPort, err := nat.NewPort("tcp", appPortNumber)
	if err != nil {
		testContainers.Terminate(t)
		exitWithError(t, err, "Failed to create app port")
	}

	appExposedPorts := []string{string(tcpAppPort)}
	if debugContainer == "true" {
		appExposedPorts = append(appExposedPorts, "2345/tcp")
	}

	hostConfigModifier := func(hostConfig *container.HostConfig) {
		if debugContainer == "true" {
			hostConfig.PortBindings = nat.PortMap{
				"2345/tcp": []nat.PortBinding{
					{HostIP: "127.0.0.1", HostPort: "2345"},
				},
			}
			hostConfig.CapAdd = []string{"SYS_PTRACE"}
			hostConfig.SecurityOpt = []string{"apparmor:unconfined"}
		}
		// Lets the container reach a fake Airtable running on the host
		hostConfig.ExtraHosts = append(hostConfig.ExtraHosts, "host.docker.internal:host-gateway")
	}

	var waitStrategy wait.Strategy
	waitStrategy = wait.ForHTTP("/metrics").WithPort(tcpAppPort).WithStartupTimeout(30 * time.Second)
	if debugContainer == "true" {
		waitStrategy = wait.ForLog("API server listening at: [::]:2345").WithStartupTimeout(5 * time.Minute)
	}

	appContainerRequest := testcontainers.ContainerRequest{
		ExposedPorts: appExposedPorts,
		Env: map[string]string{
			"DB_TYPE":             settings.Type,
			"DB_HOST":             settings.NetworkAlias,
			"DB_PORT":             settings.Port,
			"DB_DATABASE":         settings.Database,
			"DB_USER":             settings.User,
			"DB_PASSWORD":         settings.Password,
			"DB_CONNECTION_LIMIT": envOr("DB_CONNECTION_LIMIT", "5"),
			"JWT_SECRET":          envOr("JWT_SECRET", "testcontainers-secret"),
			"AIRTABLE_API_URL":    envOr("AIRTABLE_API_URL", "http://host.docker.internal:4010"),
			"CLIENT_ORIGINS":      os.Getenv("CLIENT_ORIGINS"),
			"PORT":                appPortNumber,
		},
		HostConfigModifier: hostConfigModifier,
		WaitingFor:         waitStrategy,
		Networks:           []string{networkName},
	}

	if debugContainer == "true" {
		appContainerRequest.Entrypoint = []string{
			"/usr/local/bin/dlv",
			"--listen=:2345",
			"--headless=true",
			"--api-version=2",
			"--accept-multiclient",
			"exec",
			"./airtable-forms",
		}
	}

	if !imageExists {
		reaperSessionID := uuid.New().String()
		buildArgs := map[string]*string{
			"RESOURCE_REAPER_SESSION_ID": &reaperSessionID,
		}
		if debugContainer == "true" {
			buildArgs["DEBUG"] = &debugContainer
		}

		buildContext := envOr("TESTCONTAINERS_BUILD_CONTEXT", "../..")

		logMessage(t, "Image %s does not exist, building...", appImageName)
		builderContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				FromDockerfile: testcontainers.FromDockerfile{
					Context:    buildContext,
					Dockerfile: "Dockerfile",
					Repo:       "airtable-forms-test-builder",
					Tag:        "latest",
					BuildArgs:  buildArgs,
					BuildOptionsModifier: func(opts *build.ImageBuildOptions) {
						opts.Target = "builder"
					},
					PrintBuildLog: true,
				},
			},
			Started: false,
		})
		if err != nil {
			testContainers.Terminate(t)
			exitWithError(t, err, "Failed to build airtable-forms-test-builder")
		}
		testContainers.AppBuilderContainer = builderContainer

		repo, tag, _ := strings.Cut(appImageName, ":")
		appContainerRequest.FromDockerfile = testcontainers.FromDockerfile{
			Context:    buildContext,
			Dockerfile: "Dockerfile",
			Repo:       repo,
			Tag:        tag,
			KeepImage:  true,
			BuildArgs:  buildArgs,
			BuildOptionsModifier: func(opts *build.ImageBuildOptions) {
				opts.Target = "runtime"
			},
			PrintBuildLog: true,
		}
	} else {
		logMessage(t, "Image %s exists, reusing...", appImageName)
		appContainerRequest.Image = appImageName
	}

	appContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: appContainerRequest,
		Started:          true,
	})
	if err != nil {
		testContainers.Terminate(t)
		exitWithError(t, err, "Failed to start airtable-forms")
	}
	testContainers.AppContainer = appContainer

	appHost, _ := appContainer.Host(ctx)
	appPort, _ := appContainer.MappedPort(ctx, tcpAppPort)
	logMessage(t, "BASE_URL=http://%s:%s", appHost, appPort.Port())

	logMessage(t, "airtable-forms testcontainer started successfully")
	return testContainers, nil
}

// startDB starts the database container, joined to networkName when given, and
// runs the init scripts through the mapped port.
func startDB(ctx context.Context, t *testing.T, testContainers *TestContainers, settings DBSettings, networkName string) (string, nat.Port) {
	tcpDbPort, err := nat.NewPort("tcp", settings.Port)
	if err != nil {
		testContainers.Terminate(t)
		exitWithError(t, err, "Failed to create DB port")
	}

	req := testcontainers.ContainerRequest{
		Image:        settings.Image,
		ExposedPorts: []string{string(tcpDbPort)},
		Env:          getDBInitEnvMap(settings),
		WaitingFor:   wait.ForListeningPort(tcpDbPort).WithStartupTimeout(60 * time.Second),
	}
	if networkName != "" {
		req.Networks = []string{networkName}
		req.NetworkAliases = map[string][]string{
			networkName: {settings.NetworkAlias},
		}
	}

	dbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		testContainers.Terminate(t)
		exitWithError(t, err, "Failed to start Database")
	}
	testContainers.DBContainer = dbContainer

	dbHost, _ := dbContainer.Host(ctx)
	dbPort, _ := dbContainer.MappedPort(ctx, tcpDbPort)

	var initErr error
	switch settings.Type {
	case "postgres":
		initErr = performPostgresDBInit(settings, dbHost, dbPort)
	default:
		initErr = performMySqlDBInit(settings, dbHost, dbPort)
	}
	if initErr != nil {
		testContainers.Terminate(t)
		exitWithError(t, initErr, "Failed to initialize database")
	}

	return dbHost, dbPort
}

func getDBInitEnvMap(settings DBSettings) map[string]string {
	if settings.Type == "postgres" {
		return map[string]string{
			"POSTGRES_PASSWORD": settings.Password,
			"POSTGRES_USER":     settings.User,
			"POSTGRES_DB":       settings.Database,
		}
	}
	return map[string]string{
		"MARIADB_ROOT_PASSWORD": settings.RootPassword,
		"MYSQL_ROOT_PASSWORD":   settings.RootPassword,
	}
}

func performMySqlDBInit(settings DBSettings, dbHost string, dbPort nat.Port) error {
	rootCfg := settings.Config(dbHost, dbPort.Port())
	rootCfg.DBUser = "root"
	rootCfg.DBPassword = settings.RootPassword
	rootCfg.DBDatabase = ""

	db, err := sql.Open("mysql", database.MySQLDSN(rootCfg))
	if err != nil {
		return fmt.Errorf("failed to connect to MariaDB for setup: %w", err)
	}
	defer db.Close()
	// USE applies to one connection only
	db.SetMaxOpenConns(1)

	if err := waitForPing(db); err != nil {
		return fmt.Errorf("MariaDB not ready after 30 seconds: %w", err)
	}

	statements := []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", settings.Database),
		fmt.Sprintf("CREATE USER IF NOT EXISTS '%s'@'%%' IDENTIFIED BY '%s'", settings.User, settings.Password),
		fmt.Sprintf("USE %s", settings.Database),
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("%w : when executing > %s", err, stmt)
		}
	}

	if err := executeSQL(db, expandSettings(data.InitdbMariaDBTables, settings)); err != nil {
		return fmt.Errorf("failed to execute %s tables init sql: %w", settings.Type, err)
	}
	if err := executeSQL(db, expandSettings(data.InitdbMariaDBPrivileges, settings)); err != nil {
		return fmt.Errorf("failed to execute %s privileges init sql: %w", settings.Type, err)
	}
	return nil
}

func performPostgresDBInit(settings DBSettings, dbHost string, dbPort nat.Port) error {
	cfg := settings.Config(dbHost, dbPort.Port())

	// The server restarts once after its own init, so connecting is retried
	var lastErr error
	for i := 0; i < 30; i++ {
		gdb, err := database.Connect(cfg)
		if err == nil {
			sqlDB, dbErr := gdb.DB()
			if dbErr != nil {
				return dbErr
			}
			defer sqlDB.Close()
			if err := waitForPing(sqlDB); err != nil {
				return fmt.Errorf("Postgres not ready after 30 seconds: %w", err)
			}
			if err := executeSQL(sqlDB, expandSettings(data.InitdbPostgresTables, settings)); err != nil {
				return fmt.Errorf("failed to execute %s tables init sql: %w", settings.Type, err)
			}
			return nil
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	return fmt.Errorf("Postgres not ready after 30 seconds: %w", lastErr)
}

func waitForPing(db *sql.DB) error {
	var err error
	for i := 0; i < 30; i++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		time.Sleep(1 * time.Second)
	}
	return err
}

// expandSettings substitutes ${DB_DATABASE} style references in an init script
func expandSettings(script string, settings DBSettings) string {
	return os.Expand(script, func(key string) string {
		switch key {
		case "DB_DATABASE":
			return settings.Database
		case "DB_USER":
			return settings.User
		case "DB_PASSWORD":
			return settings.Password
		}
		return os.Getenv(key)
	})
}

func executeSQL(db *sql.DB, script string) error {
	lines := strings.Split(script, "\n")

	ncls := make([]string, 0, len(lines))
	for _, l := range lines {
		ncls = append(ncls, excludeComment(l))
	}

	queries := strings.Split(strings.Join(ncls, "\n"), ";")
	for _, q := range queries {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("%s : when executing > %s", err.Error(), q)
		}
	}
	return nil
}

// excludeComment strips a trailing -- comment that is not inside a quoted string
func excludeComment(line string) string {
	var out strings.Builder
	var quote byte

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '-' && i+1 < len(line) && line[i+1] == '-':
			return out.String()
		}
		out.WriteByte(ch)
	}
	return out.String()
}

func imageExists(ctx context.Context, imageName string) (bool, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return false, err
	}
	defer cli.Close()

	images, err := cli.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return false, err
	}

	for _, summary := range images {
		for _, tag := range summary.RepoTags {
			if tag == imageName {
				return true, nil
			}
		}
	}

	return false, nil
}

func envOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func exitWithError(t *testing.T, err error, msg string) {
	if t != nil {
		t.Fatalf(msg+": %v", err)
	} else {
		fmt.Printf(msg+": %v\n", err)
		os.Exit(1)
	}
}

func logMessage(t *testing.T, format string, args ...any) {
	if t != nil {
		t.Logf(format, args...)
	} else {
		fmt.Printf(format+"\n", args...)
	}
}
