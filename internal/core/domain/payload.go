package domain

import (
	"encoding/json"
)

// PayloadKind selects which representation of a pipeline payload is active.
type PayloadKind string

const (
	// KindDomainXML is the raw-text payload kind. The text is treated as
	// opaque; hook scripts read and rewrite it through the staged file.
	KindDomainXML PayloadKind = "domxml"

	// KindJSON is the structured payload kind: a string-keyed map of
	// JSON-compatible values.
	KindJSON PayloadKind = "json"
)

// Payload is the mutable value threaded through a hook-point pipeline.
// Exactly one representation is active, selected by Kind.
type Payload struct {
	Kind PayloadKind

	// Text holds the raw-text payload when Kind is KindDomainXML.
	// The empty string is a valid (absent) payload.
	Text string

	// Data holds the structured payload when Kind is KindJSON.
	// A nil map is a valid (absent) payload and round-trips as JSON null.
	Data map[string]any
}

// DomainXMLPayload returns a raw-text payload.
func DomainXMLPayload(text string) Payload {
	return Payload{Kind: KindDomainXML, Text: text}
}

// JSONPayload returns a structured payload.
func JSONPayload(data map[string]any) Payload {
	return Payload{Kind: KindJSON, Data: data}
}

// Encode serializes the payload to its staged on-disk form: raw text
// verbatim, structured data as canonical JSON.
func (p Payload) Encode() ([]byte, error) {
	switch p.Kind {
	case KindJSON:
		b, err := json.Marshal(p.Data)
		if err != nil {
			return nil, ErrPayloadDecode("encode payload: " + err.Error())
		}
		return b, nil
	default:
		return []byte(p.Text), nil
	}
}

// DecodePayload parses staged file content back into a payload of the given
// kind. Raw text passes through verbatim, including the empty string.
func DecodePayload(kind PayloadKind, content []byte) (Payload, error) {
	switch kind {
	case KindJSON:
		var data map[string]any
		if err := json.Unmarshal(content, &data); err != nil {
			return Payload{}, ErrPayloadDecode("staged payload is not valid JSON: " + err.Error())
		}
		return Payload{Kind: KindJSON, Data: data}, nil
	default:
		return Payload{Kind: KindDomainXML, Text: string(content)}, nil
	}
}

// FailureMode controls whether pipeline faults raise or are returned as data.
type FailureMode string

const (
	// ModeStrict raises an aggregate *PipelineError when any script
	// recorded a fault.
	ModeStrict FailureMode = "strict"

	// ModeLenient returns the final payload together with the diagnostic
	// list without raising.
	ModeLenient FailureMode = "lenient"
)

// OutputMode controls how a script hands its result to the next stage.
type OutputMode string

const (
	// OutputStaged reads the next-stage payload back from the staged file.
	OutputStaged OutputMode = "staged"

	// OutputDirect additionally captures standard output; for raw-text
	// payloads a non-empty stdout becomes the next-stage payload.
	OutputDirect OutputMode = "direct"
)
