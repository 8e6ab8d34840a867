package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(w io.Writer, s Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"name", "connections", "reasons", "impact"}); err != nil {
		return err
	}
	for _, e := range s.Weak {
		record := []string{
			e.Name,
			strconv.Itoa(e.Connections),
			strings.Join(e.Reasons, ";"),
			strings.Join(e.Impact, ";"),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeUnreachableCSV(w io.Writer, u UnreachableSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"kind", "name"}); err != nil {
		return err
	}
	for _, n := range u.Nodes {
		if err := cw.Write([]string{"node", n}); err != nil {
			return err
		}
	}
	for _, c := range u.Connections {
		if err := cw.Write([]string{"connection", c}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
