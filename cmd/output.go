package cmd

import (
	"bytes"
	stdjson "encoding/json"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// render writes a JSON value in the requested format
func render(w io.Writer, format string, value []byte) error {
	var (
		out []byte
		err error
	)
	switch format {
	case outputJSON, "":
		out, err = indentJSON(value)
	case outputYAML, "yml":
		out, err = toYAML(value)
	default:
		return errors.Errorf("unknown output format: %s (supported: json, yaml)", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func indentJSON(value []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := stdjson.Indent(&buf, value, "", "  "); err != nil {
		return nil, errors.Wrap(err, "failed to indent value")
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// toYAML converts through a yaml node so that key order survives
func toYAML(value []byte) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(value, &node); err != nil {
		return nil, errors.Wrap(err, "failed to convert value")
	}
	blockStyle(&node)
	out, err := yaml.Marshal(&node)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode yaml")
	}
	return out, nil
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}
