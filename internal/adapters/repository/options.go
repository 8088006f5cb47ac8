package repository

import (
	"strings"

	"github.com/okian/trialmatch/internal/domain/keywords"
	"github.com/okian/trialmatch/pkg/logger"
)

// Option applies a configuration option to the FileStore.
type Option func(*FileStore)

// WithExtractor sets the extractor that fills empty keyword sets.
func WithExtractor(e keywords.Extractor) Option {
	return func(s *FileStore) {
		if e != nil {
			s.extractor = e
		}
	}
}

// WithLogger sets the logger used for dropped-record warnings.
func WithLogger(l logger.Logger) Option {
	return func(s *FileStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStatuses keeps only trials whose status is one of statuses, compared
// case-insensitively. No statuses accepts every status.
func WithStatuses(statuses ...string) Option {
	return func(s *FileStore) {
		if len(statuses) == 0 {
			s.statuses = nil
			return
		}
		s.statuses = make(map[string]struct{}, len(statuses))
		for _, st := range statuses {
			s.statuses[strings.ToUpper(strings.TrimSpace(st))] = struct{}{}
		}
	}
}

// WithIndent sets the indentation of written JSON. An empty string writes
// compact JSON.
func WithIndent(indent string) Option {
	return func(s *FileStore) {
		s.indent = indent
	}
}
