package render

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/christopherklint97/marvinr/internal/productivity"
)

// ReportSchema returns the JSON Schema of a range report.
func ReportSchema() ([]byte, error) {
	r := &jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&productivity.RangeSummary{})
	schema.Title = "Productivity range report"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling report schema: %w", err)
	}
	return data, nil
}
