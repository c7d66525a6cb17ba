// internal/api/schema.go
package api

import (
	"strings"

	"docverify/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// submitSchema gates the submission payload before any decoding work.
// Both images, both IVs, the test result and the encrypted extraction
// (payload, IV, confidence) are mandatory; the client encrypts and
// analyzes before it submits.
const submitSchema = `{
	"type": "object",
	"required": ["ownerId", "frontImage", "backImage", "frontImageIV", "backImageIV",
	             "testResult", "encryptedPayload", "payloadIV", "extractionConfidence"],
	"properties": {
		"ownerId":              {"type": "string", "minLength": 1},
		"frontImage":           {"type": "string", "minLength": 1},
		"backImage":            {"type": "string", "minLength": 1},
		"frontImageIV":         {"type": "string", "minLength": 1},
		"backImageIV":          {"type": "string", "minLength": 1},
		"testResult":           {"type": "string", "enum": ["reactive", "non-reactive"]},
		"encryptedPayload":     {"type": "string", "minLength": 1},
		"payloadIV":            {"type": "string", "minLength": 1},
		"extractionConfidence": {"type": "number"},
		"structureVersion":     {"type": "string", "enum": ["v1", "v2"]}
	}
}`

// analyzeSchema gates the OCR preview payload.
const analyzeSchema = `{
	"type": "object",
	"required": ["frontImage", "backImage"],
	"properties": {
		"frontImage": {"type": "string", "minLength": 1},
		"backImage":  {"type": "string", "minLength": 1}
	}
}`

var (
	compiledSubmitSchema  = gojsonschema.NewStringLoader(submitSchema)
	compiledAnalyzeSchema = gojsonschema.NewStringLoader(analyzeSchema)
)

// validateAgainst runs a JSON schema over the raw body and folds the
// failures into one validation error.
func validateAgainst(schema gojsonschema.JSONLoader, body []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return errors.NewValidationError("Request body is not valid JSON", err.Error())
	}
	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return errors.NewValidationError("Request validation failed", strings.Join(details, "; "))
}
