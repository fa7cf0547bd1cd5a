package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	apperrors "teacli/internal/errors"
)

// snapshotDocument is the on-disk shape of a flowsheet snapshot: the node
// tree flattened into a path → value map. Values are numbers or strings.
type snapshotDocument struct {
	Name  string                 `json:"name"`
	Nodes map[string]interface{} `json:"nodes"`
}

// SnapshotConnector loads flowsheet snapshots exported from the simulator to
// JSON. The live automation interface is platform-bound; a snapshot gives
// the pipeline the same node tree without holding the simulator open.
type SnapshotConnector struct {
	logger *slog.Logger
}

// NewSnapshotConnector creates a snapshot connector.
func NewSnapshotConnector(logger *slog.Logger) *SnapshotConnector {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotConnector{logger: logger}
}

// Connect loads the snapshot file and returns a session over its node tree.
func (c *SnapshotConnector) Connect(ctx context.Context, filePath string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewConnectionError("connect canceled", err).WithContext("file", filePath)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewConnectionError("snapshot file not found", err).WithContext("file", filePath)
		}
		return nil, apperrors.NewConnectionError("snapshot file unreadable", err).WithContext("file", filePath)
	}

	var doc snapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.NewConnectionError("snapshot file is not valid JSON", err).WithContext("file", filePath)
	}

	c.logger.Info("flowsheet snapshot loaded",
		slog.String("file", filePath),
		slog.String("flowsheet", doc.Name),
		slog.Int("node_count", len(doc.Nodes)))

	return &snapshotSession{name: doc.Name, nodes: doc.Nodes}, nil
}

type snapshotSession struct {
	name   string
	nodes  map[string]interface{}
	closed bool
}

func (s *snapshotSession) ReadFloat(path string) (float64, error) {
	raw, err := s.lookup(path)
	if err != nil {
		return 0, err
	}
	num, ok := raw.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %s holds %T", ErrTypeMismatch, path, raw)
	}
	return num, nil
}

func (s *snapshotSession) ReadString(path string) (string, error) {
	raw, err := s.lookup(path)
	if err != nil {
		return "", err
	}
	text, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s holds %T", ErrTypeMismatch, path, raw)
	}
	return text, nil
}

func (s *snapshotSession) Children(path string) ([]string, error) {
	if s.closed {
		return nil, ErrNotConnected
	}
	prefix := path + `\`
	seen := make(map[string]struct{})
	for node := range s.nodes {
		if !strings.HasPrefix(node, prefix) {
			continue
		}
		rest := node[len(prefix):]
		if idx := strings.Index(rest, `\`); idx >= 0 {
			rest = rest[:idx]
		}
		if rest != "" {
			seen[rest] = struct{}{}
		}
	}
	if len(seen) == 0 {
		if _, ok := s.nodes[path]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *snapshotSession) Close() error {
	s.closed = true
	return nil
}

func (s *snapshotSession) lookup(path string) (interface{}, error) {
	if s.closed {
		return nil, ErrNotConnected
	}
	raw, ok := s.nodes[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}
	return raw, nil
}
