package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// printJSON writes v as indented JSON to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printYAML writes v as YAML to stdout. YAML marshalling goes through a
// JSON round-trip so the json struct tags decide the field names.
func printYAML(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}

// printPlain prints content for clean piping: exactly one trailing newline.
func printPlain(content string) {
	if strings.HasSuffix(content, "\n") {
		fmt.Print(content)
	} else {
		fmt.Println(content)
	}
}

// readStdin returns piped stdin, or "" when stdin is a terminal.
func readStdin() string {
	stat, err := os.Stdin.Stat()
	if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
		return ""
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return ""
	}
	return string(data)
}
