package api

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tphakala/go-esm/internal/catalog"
)

// ReadFile retrieves a server-side buffered file by byte offset until the
// reported size has been read, then asks the appliance to delete it.
func (t *Transport) ReadFile(ctx context.Context, file string) (string, error) {
	var (
		data   strings.Builder
		offset int
	)

	for {
		result, err := t.Request(ctx, catalog.ReadFile, catalog.Params{
			"file":   file,
			"offset": offset,
			"nbytes": 0,
		})
		if err != nil {
			return "", err
		}

		fields, ok := result.(map[string]string)
		if !ok {
			return "", fmt.Errorf("unexpected file chunk type %T", result)
		}

		size, err := strconv.Atoi(fields["FSIZE"])
		if err != nil {
			return "", fmt.Errorf("parsing FSIZE %q: %w", fields["FSIZE"], err)
		}
		read, err := strconv.Atoi(fields["BREAD"])
		if err != nil {
			return "", fmt.Errorf("parsing BREAD %q: %w", fields["BREAD"], err)
		}

		data.WriteString(fields["DATA"])
		offset += read

		if offset >= size || read == 0 {
			break
		}
		t.Logger.Debug().Str("file", file).Int("offset", offset).Int("size", size).Msg("reading file chunk")
	}

	if _, err := t.Request(ctx, catalog.DeleteFile, catalog.Params{"file": file}); err != nil {
		return data.String(), fmt.Errorf("deleting %s: %w", file, err)
	}
	return data.String(), nil
}
