// Package file keeps sessions as JSON files and loads bot definitions from YAML files.
package file
