package ingest

import (
	"fmt"
	"strings"
	"time"

	"graphbrowser/internal/graph"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const dateLayout = "2006-01-02"

var clusterColumns = []string{
	graph.PropClusterSize,
	graph.PropConfidenceLevel,
	graph.PropGoldenCompanyName,
	graph.PropGoldenCompanyRegNo,
	graph.PropGoldenCustomerName,
	graph.PropGoldenCustomerType,
	graph.PropGoldenDisplayName,
	graph.PropGoldenDOB,
	graph.PropGoldenFirstname,
	graph.PropGoldenSurname,
}

var customerColumns = []string{
	graph.PropCdSiExt,
	graph.PropCompanyName,
	graph.PropCompanyRegNo,
	graph.PropCustomerType,
	graph.PropDOB,
	graph.PropFirstname,
	graph.PropSurname,
}

var dateColumns = map[string]bool{
	graph.PropDOB:       true,
	graph.PropGoldenDOB: true,
}

// header maps column names to their position in a record.
type header map[string]int

func newHeader(columns []string) (header, error) {
	h := make(header, len(columns))
	for i, c := range columns {
		h[strings.TrimSpace(c)] = i
	}
	for _, key := range []string{graph.PropClusterID, graph.PropSrcCustomerID} {
		if _, ok := h[key]; !ok {
			return nil, fmt.Errorf("csv header is missing column %q", key)
		}
	}
	return h, nil
}

func (h header) cell(record []string, column string) string {
	i, ok := h[column]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// row is one parsed CSV line: a cluster, one of its customers and the edge
// between them.
type row struct {
	clusterID  string
	customerID string
	cluster    map[string]any
	customer   map[string]any
}

func (h header) parse(line int, record []string) (row, error) {
	r := row{
		clusterID:  h.cell(record, graph.PropClusterID),
		customerID: h.cell(record, graph.PropSrcCustomerID),
	}
	if r.clusterID == "" {
		return row{}, fmt.Errorf("line %d: empty %s", line, graph.PropClusterID)
	}
	if r.customerID == "" {
		return row{}, fmt.Errorf("line %d: empty %s", line, graph.PropSrcCustomerID)
	}

	var err error
	r.cluster, err = h.properties(line, record, graph.PropClusterID, r.clusterID, clusterColumns)
	if err != nil {
		return row{}, err
	}
	r.customer, err = h.properties(line, record, graph.PropSrcCustomerID, r.customerID, customerColumns)
	if err != nil {
		return row{}, err
	}
	return r, nil
}

func (h header) properties(line int, record []string, key, id string, columns []string) (map[string]any, error) {
	props := map[string]any{key: id}
	for _, column := range columns {
		value := h.cell(record, column)
		if value == "" {
			continue
		}
		if !dateColumns[column] {
			props[column] = value
			continue
		}
		t, err := time.Parse(dateLayout, value)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid %s %q: %w", line, column, value, err)
		}
		props[column] = neo4j.DateOf(t)
	}
	return props, nil
}
