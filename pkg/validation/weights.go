package validation

import (
	"fmt"
	"strings"

	"github.com/iwvelando/pawn-calculator/pkg/loans"
	"github.com/iwvelando/pawn-calculator/pkg/rates"
	"github.com/xeipuuv/gojsonschema"
)

const multiplierTable = `{
	"type": ["object", "null"],
	"additionalProperties": {"type": "number", "exclusiveMinimum": 0}
}`

const anyNumberTable = `{
	"type": ["object", "null"],
	"additionalProperties": {"type": "number"}
}`

// documentSchemaSource describes a whole weight table whose multiplier tables
// follow table. A document without an initial rate or vehicle weights is
// malformed.
func documentSchemaSource(table string) string {
	return `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["initialRate", "vehicleWeights"],
	"properties": {
		"initialRate": {"type": "number", "exclusiveMinimum": 0},
		"vehicleWeights": {"allOf": [{"type": "object"}, ` + table + `]},
		"usagePeriodWeights": ` + table + `,
		"checkWeights": ` + table + `,
		"periodWeights": {
			"allOf": [{"propertyNames": {"pattern": "^[0-9]+$"}}, ` + table + `]
		},
		"repaymentConditionWeights": ` + table + `
	}
}`
}

// weightUpdateSchema describes an admin update, which may carry any subset of
// the tables but no unknown fields.
var weightUpdateSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"additionalProperties": false,
	"minProperties": 1,
	"properties": {
		"initialRate": {"type": "number", "exclusiveMinimum": 0},
		"vehicleWeights": ` + multiplierTable + `,
		"usagePeriodWeights": ` + multiplierTable + `,
		"checkWeights": ` + multiplierTable + `,
		"periodWeights": {
			"type": ["object", "null"],
			"propertyNames": {"pattern": "^[0-9]+$"},
			"additionalProperties": {"type": "number", "exclusiveMinimum": 0}
		},
		"repaymentConditionWeights": ` + multiplierTable + `
	}
}`

var (
	// Stored documents may hold zero or negative multipliers, which the
	// composer treats as neutral. Configured defaults may not.
	documentSchema = mustSchema(documentSchemaSource(anyNumberTable))
	defaultsSchema = mustSchema(documentSchemaSource(multiplierTable))
	updateSchema   = mustSchema(weightUpdateSchema)
)

func mustSchema(source string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
	if err != nil {
		panic(fmt.Sprintf("invalid weight schema: %v", err))
	}
	return schema
}

// ValidateWeightTable checks that a decoded table is complete enough to serve
// calculations.
func ValidateWeightTable(table rates.WeightTable) error {
	return validate(documentSchema, gojsonschema.NewGoLoader(table), "weight table")
}

// ValidateDefaultWeights checks a configured default table. Unlike
// ValidateWeightTable every multiplier must be positive.
func ValidateDefaultWeights(table rates.WeightTable) error {
	return validate(defaultsSchema, gojsonschema.NewGoLoader(table), "default weight table")
}

// ValidateWeightUpdate checks a raw JSON admin update before it is merged into
// the stored document.
func ValidateWeightUpdate(data []byte) error {
	return validate(updateSchema, gojsonschema.NewBytesLoader(data), "weight update")
}

func validate(schema *gojsonschema.Schema, document gojsonschema.JSONLoader, what string) error {
	result, err := schema.Validate(document)
	if err != nil {
		return fmt.Errorf("%w: %s is not valid JSON: %v", loans.ErrInvalidInput, what, err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("%w: %s failed validation: %s", loans.ErrInvalidInput, what, strings.Join(errs, "; "))
	}
	return nil
}
