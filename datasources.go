package esm

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/tphakala/go-esm/internal/catalog"
)

// devtreeColumns names the leading columns of a device tree row. Columns
// past these are named col_<index>.
var devtreeColumns = []string{"desc_id", "name", "ds_id", "enabled", "ds_ip", "hostname", "type_id"}

// deviceTypes maps device tree desc_id values to device kinds.
var deviceTypes = map[string]string{
	"1":   "zone",
	"2":   "ERC",
	"3":   "datasource",
	"4":   "Database Event Monitor (DBM)",
	"5":   "DBM Database",
	"7":   "Policy Auditor",
	"10":  "Application Data Monitor (ADM)",
	"12":  "ELM",
	"14":  "Local ESM",
	"15":  "Advanced Correlation Engine (ACE)",
	"16":  "Asset datasource",
	"17":  "Score-based Correlation",
	"19":  "McAfee ePolicy Orchestrator (ePO)",
	"20":  "EPO",
	"21":  "McAfee Network Security Manager (NSM)",
	"22":  "McAfee Network Security Platform (NSP)",
	"23":  "NSP Port",
	"24":  "McAfee Vulnerability Manager (MVM)",
	"25":  "Enterprise Log Search (ELS)",
	"254": "client_group",
	"256": "client",
}

// DatasourceService provides the device tree and datasource management.
type DatasourceService interface {
	// List returns every device tree node as a record.
	List(ctx context.Context) (*Collection, error)

	// Get retrieves datasource details.
	Get(ctx context.Context, id string) (*Record, error)

	// Add creates a datasource under the receiver parentID and returns the
	// appliance response.
	Add(ctx context.Context, parentID string, ds map[string]any) (any, error)

	// Delete removes a datasource from its receiver.
	Delete(ctx context.Context, parentID, id string) error

	// LoadDetails merges datasource details into each record in place.
	LoadDetails(ctx context.Context, datasources *Collection, opts PerformOptions) error
}

type datasourceService struct {
	client *Client
}

func newDatasourceService(client *Client) *datasourceService {
	return &datasourceService{client: client}
}

func (s *datasourceService) List(ctx context.Context) (*Collection, error) {
	resp, err := s.client.Request(ctx, catalog.DeviceTree, nil)
	if err != nil {
		return nil, err
	}
	fields, ok := resp.(map[string]string)
	if !ok {
		return nil, fmt.Errorf("unexpected device tree response %T", resp)
	}
	records, err := parseDevtree(fields["ITEMS"])
	if err != nil {
		return nil, err
	}
	return newRecordCollection(records), nil
}

func (s *datasourceService) Get(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, configErr("datasource id", "empty")
	}
	resp, err := s.client.Request(ctx, catalog.DatasourceDetails, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	return toRecord(resp)
}

func (s *datasourceService) Add(ctx context.Context, parentID string, ds map[string]any) (any, error) {
	if parentID == "" {
		return nil, configErr("parent id", "empty")
	}
	if len(ds) == 0 {
		return nil, configErr("datasource", "empty")
	}
	return s.client.Request(ctx, catalog.AddDatasource, map[string]any{
		"parent_id":  parentID,
		"datasource": ds,
	})
}

func (s *datasourceService) Delete(ctx context.Context, parentID, id string) error {
	if parentID == "" || id == "" {
		return configErr("datasource id", "parent and datasource ids are required")
	}
	_, err := s.client.Request(ctx, catalog.DeleteDatasource, map[string]any{
		"parent_id": parentID,
		"id":        id,
	})
	return err
}

func (s *datasourceService) LoadDetails(ctx context.Context, datasources *Collection, opts PerformOptions) error {
	return loadDetails(ctx, s.client, datasources, opts, func(ctx context.Context, r *Record) (*Record, error) {
		return s.Get(ctx, r.ID("ds_id", "id"))
	})
}

// parseDevtree parses the ITEMS field of a device tree response: one node
// per line, comma separated, each cell percent-escaped.
func parseDevtree(items string) ([]*Record, error) {
	r := csv.NewReader(strings.NewReader(items))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var out []*Record
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing device tree: %w", err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}

		rec := &Record{values: make(map[string]any, len(row)+1)}
		for i, cell := range row {
			name := fmt.Sprintf("col_%d", i)
			if i < len(devtreeColumns) {
				name = devtreeColumns[i]
			}
			if v, err := url.PathUnescape(cell); err == nil {
				cell = v
			}
			rec.Set(name, cell)
		}
		if kind, ok := deviceTypes[rec.String("desc_id")]; ok {
			rec.Set("type", kind)
		}
		out = append(out, rec)
	}
	return out, nil
}
