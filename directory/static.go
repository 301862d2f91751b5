package directory

import "context"

// Static is a Directory backed by a fixed list of entries. It applies the department filter but not the status
// filter, so it behaves like a directory that returns more than it was asked for.
type Static struct {
	Entries []Entry
	Err     error
}

// NewStatic returns a directory that lists the given entries.
func NewStatic(entries ...Entry) *Static {
	return &Static{Entries: entries}
}

func (s *Static) ListActive(ctx context.Context, filter Filter) ([]Entry, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := make([]Entry, 0, len(s.Entries))
	for _, e := range s.Entries {
		if filter.Department != "" && e.Department != filter.Department {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}
