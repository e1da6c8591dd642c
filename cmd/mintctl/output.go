package main

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

func jsonOutput(c *cli.Context) bool {
	return c.Bool("json") || c.String("jq") != ""
}

// compileJQ parses and compiles a --jq filter. An empty filter gives nil.
func compileJQ(filter string) (*gojq.Code, error) {
	if filter == "" {
		return nil, nil
	}
	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
	}
	return code, nil
}

// printResult writes v as indented JSON, or the results of the --jq filter
// applied to it. Without either flag it does nothing; the status lines have
// already been printed.
func printResult(c *cli.Context, v any) error {
	if !jsonOutput(c) {
		return nil
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}

	filter := c.String("jq")
	code, err := compileJQ(filter)
	if err != nil {
		return err
	}
	if code == nil {
		fmt.Fprintln(c.App.Writer, string(data))
		return nil
	}

	// gojq works on plain maps and slices, not structs
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode output: %w", err)
	}

	iter := code.Run(doc)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return fmt.Errorf("jq filter %q failed: %w", filter, err)
		}
		if s, isString := v.(string); isString {
			fmt.Fprintln(c.App.Writer, s)
			continue
		}
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal jq result: %w", err)
		}
		fmt.Fprintln(c.App.Writer, string(out))
	}
	return nil
}
