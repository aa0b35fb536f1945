package message

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/uncord-chat/uncord-server/internal/id"
)

const dayFormat = "2006-01-02"

// Store is the on-disk ChannelStore: one directory per channel under
// <root>/hubs/data/<hub_id_hex>/<channel_id_hex>/, containing one
// append-only file per UTC calendar day on which at least one message
// was written, named by its ISO date (spec.md §4.2/§6).
type Store struct {
	root string
}

// NewStore creates a Store rooted at dir (the server's configured
// DataDir).
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

func (s *Store) channelDir(hubID, channelID id.Id) string {
	return filepath.Join(s.root, "hubs", "data", id.Hex(hubID), id.Hex(channelID))
}

func (s *Store) hubDir(hubID id.Id) string {
	return filepath.Join(s.root, "hubs", "data", id.Hex(hubID))
}

// CreateChannelDir creates the directory backing a newly created
// channel's message log.
func (s *Store) CreateChannelDir(hubID, channelID id.Id) error {
	return os.MkdirAll(s.channelDir(hubID, channelID), 0o755)
}

// RemoveChannelDir deletes a channel's entire message log, called when
// the owning channel is deleted (spec.md: "destruction cascades to its
// message log directory").
func (s *Store) RemoveChannelDir(hubID, channelID id.Id) error {
	return os.RemoveAll(s.channelDir(hubID, channelID))
}

// RemoveHubDir deletes every channel's message log for hubID, called
// when the owning hub itself is deleted.
func (s *Store) RemoveHubDir(hubID id.Id) error {
	return os.RemoveAll(s.hubDir(hubID))
}

// AddMessage appends m to the current UTC day's file for its channel,
// opening with create+append. Fails with ErrChannelNotFound if the
// channel directory does not exist.
func (s *Store) AddMessage(m Message) error {
	dir := s.channelDir(m.HubID, m.ChannelID)
	if _, err := os.Stat(dir); err != nil {
		return ErrChannelNotFound
	}

	path := filepath.Join(dir, time.Now().UTC().Format(dayFormat))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	record, err := encodeRecord(m)
	if err != nil {
		return err
	}
	_, err = f.Write(record)
	return err
}

// dayFiles returns the channel's day-file names (bare "YYYY-MM-DD"),
// sorted ascending (chronologically, since ISO dates sort lexically).
func (s *Store) dayFiles(hubID, channelID id.Id) ([]string, error) {
	dir := s.channelDir(hubID, channelID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := time.Parse(dayFormat, e.Name()); err != nil {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) readDay(hubID, channelID id.Id, day string) ([]Message, error) {
	path := filepath.Join(s.channelDir(hubID, channelID), day)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeAllRecords(data)
}

// GetMessage scans day files newest-date first and returns the first
// message whose id matches, or ErrMessageNotFound.
func (s *Store) GetMessage(hubID, channelID, target id.Id) (*Message, error) {
	days, err := s.dayFiles(hubID, channelID)
	if err != nil {
		return nil, err
	}
	for i := len(days) - 1; i >= 0; i-- {
		msgs, err := s.readDay(hubID, channelID, days[i])
		if err != nil {
			return nil, err
		}
		for j := range msgs {
			if msgs[j].ID == target {
				return &msgs[j], nil
			}
		}
	}
	return nil, ErrMessageNotFound
}

// GetMessagesAfter locates the day file containing id, then returns all
// messages strictly after it within that file followed by every message
// in later files, oldest to newest, up to max. If id is not found in any
// file, it returns an empty slice, per spec.md §4.2.
func (s *Store) GetMessagesAfter(hubID, channelID, after id.Id, max int) ([]Message, error) {
	days, err := s.dayFiles(hubID, channelID)
	if err != nil {
		return nil, err
	}

	var result []Message
	foundDay := -1
	for i, day := range days {
		msgs, err := s.readDay(hubID, channelID, day)
		if err != nil {
			return nil, err
		}
		idx := -1
		for j := range msgs {
			if msgs[j].ID == after {
				idx = j
				break
			}
		}
		if idx == -1 {
			continue
		}
		foundDay = i
		result = append(result, msgs[idx+1:]...)
		break
	}
	if foundDay == -1 {
		return nil, nil
	}

	for i := foundDay + 1; i < len(days) && len(result) < max; i++ {
		msgs, err := s.readDay(hubID, channelID, days[i])
		if err != nil {
			return nil, err
		}
		result = append(result, msgs...)
	}

	if len(result) > max {
		result = result[:max]
	}
	return result, nil
}

// GetMessagesBetween iterates the day files whose date lies within
// [from/86400, to/86400] (inclusive), filters to
// from <= created <= to, orders ascending by created, reverses (both
// file order and per-file order) when invert is true, and truncates to
// max (spec.md §4.2).
func (s *Store) GetMessagesBetween(hubID, channelID id.Id, from, to time.Time, invert bool, max int) ([]Message, error) {
	days, err := s.dayFiles(hubID, channelID)
	if err != nil {
		return nil, err
	}

	fromDay := from.UTC().Format(dayFormat)
	toDay := to.UTC().Format(dayFormat)

	var inRange []string
	for _, day := range days {
		if day >= fromDay && day <= toDay {
			inRange = append(inRange, day)
		}
	}
	if invert {
		reverseStrings(inRange)
	}

	var result []Message
	for _, day := range inRange {
		msgs, err := s.readDay(hubID, channelID, day)
		if err != nil {
			return nil, err
		}
		var filtered []Message
		for _, m := range msgs {
			if !m.Created.Before(from) && !m.Created.After(to) {
				filtered = append(filtered, m)
			}
		}
		sort.SliceStable(filtered, func(i, j int) bool {
			if !filtered[i].Created.Equal(filtered[j].Created) {
				return filtered[i].Created.Before(filtered[j].Created)
			}
			return filtered[i].ID.String() < filtered[j].ID.String()
		})
		if invert {
			reverseMessages(filtered)
		}
		remaining := max - len(result)
		if remaining <= 0 {
			break
		}
		if len(filtered) > remaining {
			filtered = filtered[:remaining]
		}
		result = append(result, filtered...)
		if len(result) >= max {
			break
		}
	}
	return result, nil
}

// GetLastMessages returns up to max messages, day files newest to
// oldest, reversed (newest first) within each file (spec.md §4.2).
func (s *Store) GetLastMessages(hubID, channelID id.Id, max int) ([]Message, error) {
	days, err := s.dayFiles(hubID, channelID)
	if err != nil {
		return nil, err
	}

	var result []Message
	for i := len(days) - 1; i >= 0 && len(result) < max; i-- {
		msgs, err := s.readDay(hubID, channelID, days[i])
		if err != nil {
			return nil, err
		}
		reverseMessages(msgs)
		remaining := max - len(result)
		if len(msgs) > remaining {
			msgs = msgs[:remaining]
		}
		result = append(result, msgs...)
	}
	return result, nil
}

func reverseMessages(m []Message) {
	for i, j := 0, len(m)-1; i < j; i, j = i+1, j-1 {
		m[i], m[j] = m[j], m[i]
	}
}

func reverseStrings(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
