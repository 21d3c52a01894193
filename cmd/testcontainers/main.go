// Command testcontainers starts the database and the service in containers and
// keeps them up until interrupted. Used to run browser and API tests against a
// real stack.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/localnerve/airtable-forms/tests/helpers"
)

func main() {
	var showHelp bool
	flag.BoolVar(&showHelp, "h", false, "show help")
	var envFilename string
	flag.StringVar(&envFilename, "f", "", "path to the .env file")
	var dbType string
	flag.StringVar(&dbType, "db", "", "database type, mariadb or postgres (overrides DB_TYPE)")
	flag.Parse()

	usage := `
Run the airtable-forms testcontainers with the environment variables from the .env file.

Usage:

testcontainers [-h] [-f ENV_FILE_PATH] [-db DB_TYPE]

ENV_FILE_PATH: path to the .env file
DB_TYPE: mariadb (default) or postgres

AIRTABLE_API_URL should point at an Airtable stand-in reachable from the
container, host.docker.internal resolves to this machine.

example
  testcontainers -f /path/to/something/.env -db postgres
`
	if showHelp {
		fmt.Println(usage)
		return
	}

	if envFilename != "" {
		log.Printf("Loading environment variables from %s\n", envFilename)
		if err := godotenv.Load(envFilename); err != nil {
			log.Fatalf("Failed to load environment variables: %v\n", err)
		}
	} else {
		log.Printf("No environment file specified, using current environment variables\n")
	}
	if dbType != "" {
		os.Setenv("DB_TYPE", dbType)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGTSTP, syscall.SIGQUIT)

	started := make(chan *helpers.TestContainers, 1)
	go func() {
		testContainers, err := helpers.CreateAllTestContainers(nil)
		if err != nil {
			log.Fatalf("Failed to create test containers: %v\n", err)
		}
		started <- testContainers
	}()

	var testContainers *helpers.TestContainers
	select {
	case testContainers = <-started:
		log.Printf("Containers running, press Ctrl-C to stop\n")
		sig := <-sigs
		log.Printf("\nReceived signal: %v, terminating test containers...\n", sig)
	case sig := <-sigs:
		log.Printf("\nReceived signal: %v before startup finished\n", sig)
	}
	if testContainers != nil {
		testContainers.Terminate(nil)
	}
}
