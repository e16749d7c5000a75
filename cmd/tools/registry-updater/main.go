// cmd/tools/registry-updater/main.go
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func help() string {
	return `
Usage: registry-updater <command> [flags]

Commands:
  list      Print the registered activities
  add       Add a new activity to the registry
  update    Update an existing activity's field
  validate  Validate the registry file and compile every input schema
  help      Show this help message

Examples:
  registry-updater list -path configs/activity-registry.json
  registry-updater add -id venue.notify -displayName "Notify Organiser" -category venue -taskType notify-organiser
  registry-updater update -id venue.recommend -field status -value verified
  registry-updater validate -path configs/activity-registry.json

Use 'registry-updater <command> -h' for more information about a command.
`
}
