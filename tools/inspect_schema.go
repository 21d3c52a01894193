// Prints the DDL GORM generates for the models, for keeping data/initdb in step.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/localnerve/airtable-forms/internal/config"
	"github.com/localnerve/airtable-forms/internal/database"
)

func main() {
	driver := flag.String("driver", "sqlite", "sqlite (pure Go) or sqlite3 (cgo)")
	flag.Parse()

	db, err := database.Connect(&config.Config{
		DBType:            *driver,
		DBDatabase:        ":memory:",
		DBConnectionLimit: 1,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		log.Fatal(err)
	}

	var tables []string
	db.Raw("SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name").Scan(&tables)

	for _, table := range tables {
		fmt.Printf("\n=== Table: %s ===\n", table)
		var ddl string
		db.Raw("SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&ddl)
		fmt.Println(ddl)

		var indexes []string
		db.Raw("SELECT sql FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND sql IS NOT NULL ORDER BY name", table).Scan(&indexes)
		for _, idx := range indexes {
			fmt.Println(idx)
		}
	}
}
