package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

const (
	outputFormatFlagNameConstant   = "output"
	outputFormatFlagUsageConstant  = "Output format."
	outputFormatTextConstant       = "text"
	outputFormatJSONConstant       = "json"
	outputFormatYAMLConstant       = "yaml"
	documentIndentConstant         = "  "
	documentIndentWidthConstant    = 2
	unknownOutputFormatTemplate    = "unknown output format %q"
	documentEncodingFailedTemplate = "unable to encode %s output: %w"
)

var outputFormatChoices = []string{outputFormatTextConstant, outputFormatJSONConstant, outputFormatYAMLConstant}

// documentRenderer writes a value in one of the supported output formats.
// Text rendering is delegated to renderText so that each command controls its own layout.
type documentRenderer struct {
	format     string
	renderText func(io.Writer) error
}

func (renderer documentRenderer) render(writer io.Writer, document any) error {
	switch renderer.format {
	case outputFormatTextConstant, "":
		if renderer.renderText == nil {
			return nil
		}
		return renderer.renderText(writer)
	case outputFormatJSONConstant:
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", documentIndentConstant)
		if encodingError := encoder.Encode(document); encodingError != nil {
			return fmt.Errorf(documentEncodingFailedTemplate, renderer.format, encodingError)
		}
		return nil
	case outputFormatYAMLConstant:
		return encodeYAML(writer, document)
	default:
		return fmt.Errorf(unknownOutputFormatTemplate, renderer.format)
	}
}

func encodeYAML(writer io.Writer, document any) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(documentIndentWidthConstant)
	if encodingError := encoder.Encode(document); encodingError != nil {
		return fmt.Errorf(documentEncodingFailedTemplate, outputFormatYAMLConstant, encodingError)
	}
	return encoder.Close()
}
