// Package anchors remembers sync points, mode and rate for sets of clips between sessions.
package anchors

import (
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/metafates/gache"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/tandem-cli/tandem/filesystem"
	"github.com/tandem-cli/tandem/where"
	"golang.org/x/exp/slices"
)

var cacher = gache.New[map[string]*Record](
	&gache.Options{
		Path:       where.Anchors(),
		FileSystem: &filesystem.GacheFs{},
	},
)

// Get returns every remembered record keyed by clip set.
func Get() (map[string]*Record, error) {
	cached, expired, err := cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return make(map[string]*Record), nil
	}
	return cached, nil
}

// Save remembers record, replacing whatever was stored for the same clip set.
func Save(record *Record) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	if record.SavedAt.IsZero() {
		record.SavedAt = time.Now()
	}

	saved[record.Key()] = record
	return cacher.Set(saved)
}

// Lookup returns the record remembered for the given clip sources, if any.
func Lookup(sources []string) mo.Option[*Record] {
	saved, err := Get()
	if err != nil {
		return mo.None[*Record]()
	}

	record, ok := saved[Key(sources)]
	if !ok {
		return mo.None[*Record]()
	}
	return mo.Some(record)
}

// Search returns the records whose clip set fuzzily matches query, most recent first.
func Search(query string) ([]*Record, error) {
	saved, err := Get()
	if err != nil {
		return nil, err
	}

	records := lo.Filter(lo.Values(saved), func(r *Record, _ int) bool {
		return query == "" || fuzzy.MatchFold(query, r.Key())
	})

	slices.SortFunc(records, func(a, b *Record) int {
		return b.SavedAt.Compare(a.SavedAt)
	})
	return records, nil
}

// Forget removes the record stored under key. Forgetting an unknown key is not an error.
func Forget(key string) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	delete(saved, key)
	return cacher.Set(saved)
}

// Clear forgets every record.
func Clear() error {
	return cacher.Set(make(map[string]*Record))
}
