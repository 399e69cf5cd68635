package eventlog

import (
	"strings"
)

// Match is a log line that matched a search.
type Match struct {
	Date  string `json:"date"`
	Line  string `json:"line"`
	Entry Entry  `json:"-"`
}

// Search returns entries from every segment whose rendered line contains
// query, case-insensitively, ordered by target date and then file order.
func (s *Store) Search(query string) ([]Match, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, nil
	}

	dates, err := s.Segments()
	if err != nil {
		return nil, err
	}

	var matches []Match
	var errs []error
	for _, date := range dates {
		_, err := s.scan(date, func(e Entry) {
			line := e.String()
			if strings.Contains(strings.ToLower(line), needle) {
				matches = append(matches, Match{Date: date, Line: line, Entry: e})
			}
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return matches, joinErrors(errs)
}
