package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/tidwall/pretty"
)

var (
	dimColor   = color.New(color.FgHiBlack)
	nameColor  = color.New(color.FgCyan)
	eventColor = color.New(color.FgYellow, color.Bold)
)

// printJSON writes v indented, one value per call.
func printJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(pretty.Pretty(data))
	return err
}

// printLine writes a compact JSON line.
func printLine(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
