package main

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"darkest-dnd-server/protocol"
)

var schemaOut string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of every wire payload",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(buildSchema(), "", "  ")
		if err != nil {
			return fmt.Errorf("marshal schema: %w", err)
		}
		data = append(data, '\n')
		if schemaOut == "" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		return os.WriteFile(schemaOut, data, 0o644)
	},
}

func init() {
	schemaCmd.Flags().StringVar(&schemaOut, "out", "", "write the schema to a file instead of stdout")
}

// buildSchema describes each event as a one-of branch keyed by its type.
func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}

	branch := func(direction, typ string, payload any) *jsonschema.Schema {
		s := reflector.ReflectFromType(reflect.TypeOf(payload))
		s.Version = ""
		s.Title = typ
		s.Description = direction + " payload of " + typ
		return s
	}

	var inbound, outbound []*jsonschema.Schema
	for _, typ := range sortedKeys(protocol.Inbound()) {
		inbound = append(inbound, branch("Peer command", typ, protocol.Inbound()[typ]))
	}
	for _, typ := range sortedKeys(protocol.Outbound()) {
		outbound = append(outbound, branch("Server event", typ, protocol.Outbound()[typ]))
	}

	return &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "darkest-dnd-server wire payloads",
		Description: "Payloads carried in the data field of {\"type\", \"data\"} envelopes.",
		OneOf: []*jsonschema.Schema{
			{Title: "Peer commands", OneOf: inbound},
			{Title: "Server events", OneOf: outbound},
		},
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
