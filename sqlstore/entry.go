package sqlstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/standardsmanual/standards/core"
)

// EntryDB implements core.Store on a SQL database. Entries live in one table
// with their fields as a JSON document; filtering and ordering happen in Go
// because queries are few and the data is small. The version column gives the
// same compare-and-swap semantics as the managed store, so the one
// core.ErrConflict code path covers both backends.
type EntryDB struct {
	*sql.DB
	get       *sql.Stmt
	byType    *sql.Stmt
	insert    *sql.Stmt
	update    *sql.Stmt
	setPub    *sql.Stmt
	deleteOne *sql.Stmt
}

func NewEntryDB(db *sql.DB) *EntryDB {

	db.Exec(
		`CREATE TABLE IF NOT EXISTS entry (
			id varchar(36) PRIMARY KEY,
			type varchar(64) NOT NULL,
			version INTEGER NOT NULL,
			published INTEGER NOT NULL,
			created INTEGER NOT NULL,
			fields TEXT NOT NULL
		);`)

	var entryDB = &EntryDB{}
	entryDB.DB = db
	entryDB.get = mustPrepare(db, "SELECT type, version, published, created, fields FROM entry WHERE id = ? LIMIT 1")
	entryDB.byType = mustPrepare(db, "SELECT id, version, published, created, fields FROM entry WHERE type = ?")
	entryDB.insert = mustPrepare(db, "INSERT INTO entry (id, type, version, published, created, fields) VALUES (?, ?, ?, ?, ?, ?)")
	entryDB.update = mustPrepare(db, "UPDATE entry SET version = version + 1, fields = ? WHERE id = ? AND version = ?")
	entryDB.setPub = mustPrepare(db, "UPDATE entry SET published = ? WHERE id = ?")
	entryDB.deleteOne = mustPrepare(db, "DELETE FROM entry WHERE id = ?")
	return entryDB
}

func (db *EntryDB) GetEntry(id string) (*core.Entry, error) {

	var e = &core.Entry{
		ID: id,
	}
	var published int
	var created int64
	var fieldsJSON string

	err := db.get.QueryRow(id).Scan(&e.Type, &e.Version, &published, &created, &fieldsJSON)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	e.Published = published != 0
	e.CreatedAt = time.Unix(0, created)
	e.Fields, err = decodeFields(fieldsJSON)
	if err != nil {
		return nil, fmt.Errorf("decoding entry %s: %w", id, err)
	}
	return e, nil
}

func (db *EntryDB) QueryEntries(q core.Query) ([]*core.Entry, error) {

	rows, err := db.byType.Query(q.Type)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*core.Entry
	for rows.Next() {
		var e = &core.Entry{
			Type: q.Type,
		}
		var published int
		var created int64
		var fieldsJSON string
		if err := rows.Scan(&e.ID, &e.Version, &published, &created, &fieldsJSON); err != nil {
			return nil, err
		}
		e.Published = published != 0
		e.CreatedAt = time.Unix(0, created)
		e.Fields, err = decodeFields(fieldsJSON)
		if err != nil {
			return nil, fmt.Errorf("decoding entry %s: %w", e.ID, err)
		}
		if matches(e, q.Fields) {
			entries = append(entries, e)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	orderEntries(entries, q.Order)

	if q.Limit > 0 && len(entries) > q.Limit {
		entries = entries[:q.Limit]
	}
	return entries, nil
}

func (db *EntryDB) CreateEntry(entryType string, fields map[string]interface{}) (*core.Entry, error) {

	fieldsJSON, err := encodeFields(fields)
	if err != nil {
		return nil, err
	}

	var e = &core.Entry{
		ID:        uuid.NewString(),
		Type:      entryType,
		Version:   1,
		Published: true, // supporting entities go live on creation
		CreatedAt: time.Now(),
		Fields:    fields,
	}
	if entryType == core.TypeStandard {
		e.Published = false
	}

	published := 0
	if e.Published {
		published = 1
	}
	_, err = db.insert.Exec(e.ID, e.Type, e.Version, published, e.CreatedAt.UnixNano(), fieldsJSON)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (db *EntryDB) UpdateEntry(id string, fields map[string]interface{}) (*core.Entry, error) {

	current, err := db.GetEntry(id)
	if err != nil {
		return nil, err
	}

	fieldsJSON, err := encodeFields(fields)
	if err != nil {
		return nil, err
	}

	result, err := db.update.Exec(fieldsJSON, id, current.Version)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, core.ErrConflict // someone else wrote between our read and write
	}

	current.Version++
	current.Fields = fields
	return current, nil
}

func (db *EntryDB) PublishEntry(id string) error {
	return db.setPublished(id, 1)
}

func (db *EntryDB) UnpublishEntry(id string) error {
	return db.setPublished(id, 0)
}

func (db *EntryDB) setPublished(id string, published int) error {
	result, err := db.setPub.Exec(published, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (db *EntryDB) DeleteEntry(id string) error {
	result, err := db.deleteOne.Exec(id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Links are stored as {"link": id} objects so they survive the JSON round
// trip as core.Link values.

func encodeFields(fields map[string]interface{}) (string, error) {
	encoded := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		switch v := v.(type) {
		case core.Link:
			encoded[k] = map[string]interface{}{"link": v.ID}
		case []core.Link:
			links := make([]interface{}, len(v))
			for i, l := range v {
				links[i] = map[string]interface{}{"link": l.ID}
			}
			encoded[k] = links
		default:
			encoded[k] = v
		}
	}
	b, err := json.Marshal(encoded)
	return string(b), err
}

func decodeFields(fieldsJSON string) (map[string]interface{}, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(fieldsJSON), &raw); err != nil {
		return nil, err
	}
	fields := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		fields[k] = decodeValue(v)
	}
	return fields, nil
}

func decodeValue(v interface{}) interface{} {
	switch v := v.(type) {
	case map[string]interface{}:
		if id, ok := v["link"].(string); ok && len(v) == 1 {
			return core.Link{ID: id}
		}
	case []interface{}:
		var links []core.Link
		for _, item := range v {
			if l, ok := decodeValue(item).(core.Link); ok {
				links = append(links, l)
			}
		}
		if len(links) == len(v) && len(v) > 0 {
			return links
		}
	}
	return v
}

func matches(e *core.Entry, conditions map[string]interface{}) bool {
	for field, want := range conditions {
		if !valueEquals(e.Fields[field], want) {
			return false
		}
	}
	return true
}

func valueEquals(have, want interface{}) bool {
	if l, ok := want.(core.Link); ok {
		hl, ok := have.(core.Link)
		return ok && hl.ID == l.ID
	}
	if wantNum, ok := toFloat(want); ok {
		haveNum, ok := toFloat(have)
		return ok && haveNum == wantNum
	}
	return have == want
}

func toFloat(v interface{}) (float64, bool) {
	switch v := v.(type) {
	case int:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

func orderEntries(entries []*core.Entry, order string) {
	if order == "" {
		return
	}

	desc := false
	if order[0] == '-' {
		desc = true
		order = order[1:]
	}

	less := func(a, b *core.Entry) bool {
		if order == "createdAt" {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		av, aNum := toFloat(a.Fields[order])
		bv, bNum := toFloat(b.Fields[order])
		if aNum && bNum {
			return av < bv
		}
		return a.String(order) < b.String(order)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if desc {
			return less(entries[j], entries[i])
		}
		return less(entries[i], entries[j])
	})
}
