package sqlstore

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/standardsmanual/standards/auth"
	"github.com/standardsmanual/standards/util"
)

func clean(email string) string {
	email = strings.TrimSpace(email)
	email = strings.ToLower(email)
	return email
}

func hash(salt string, password string) string {
	var hash = sha256.Sum256([]byte(password + salt))
	return hex.EncodeToString(hash[:])
}

type user struct {
	id    int
	name  string
	email string
	salt  string
	pass  string // hash
}

func (u *user) hash(password string) string {
	return hash(u.salt, password)
}

func (u *user) ID() int {
	return u.id
}

func (u *user) Name() string {
	return u.name
}

func (u *user) Email() string {
	return u.email
}

type UserDB struct {
	*sql.DB
	delete      *sql.Stmt
	getAll      *sql.Stmt
	get         *sql.Stmt
	getByEmail  *sql.Stmt
	insert      *sql.Stmt
	login       *sql.Stmt
	setPassword *sql.Stmt
}

func NewUserDB(db *sql.DB) *UserDB {

	db.Exec(
		`CREATE TABLE IF NOT EXISTS usr (
			id INTEGER PRIMARY KEY,
			name varchar(128) NOT NULL,
			mail varchar(128) NOT NULL,
			salt varchar(64) NOT NULL DEFAULT '',
			password varchar(64) NOT NULL DEFAULT '',
			UNIQUE(mail)
		);`)

	var userDB = &UserDB{}
	userDB.DB = db
	userDB.delete = mustPrepare(db, "DELETE FROM usr WHERE id = ?")
	userDB.get = mustPrepare(db, "SELECT name, mail FROM usr WHERE id = ? LIMIT 1")
	userDB.getByEmail = mustPrepare(db, "SELECT id, name FROM usr WHERE mail = ? LIMIT 1")
	userDB.getAll = mustPrepare(db, "SELECT id, name, mail, salt FROM usr ORDER BY mail LIMIT ? OFFSET ?")
	userDB.insert = mustPrepare(db, "INSERT INTO usr (name, mail) VALUES (?, ?)") // empty password field should be safe because no hash value equals it
	userDB.login = mustPrepare(db, "SELECT id, name, salt, password FROM usr WHERE mail = ?")
	userDB.setPassword = mustPrepare(db, "UPDATE usr SET salt = ?, password = ? WHERE id = ?")
	return userDB
}

func (db *UserDB) Writeable() bool {
	return true
}

func (db *UserDB) ChangePassword(u auth.DBUser, old, new string) error {
	if u.(*user).hash(old) != u.(*user).pass {
		return auth.ErrAuth
	}
	return db.SetPassword(u, new)
}

func (db *UserDB) Delete(u auth.DBUser) error {
	_, err := db.delete.Exec(u.ID())
	return err
}

// GetUser may return sql.ErrNoRows, because we can not compare the returned user to nil.
func (db *UserDB) GetUser(id int) (auth.DBUser, error) {
	var u = &user{
		id: id,
	}
	err := db.get.QueryRow(id).Scan(&u.name, &u.email)
	return u, err
}

func (db *UserDB) GetUserByEmail(email string) (auth.DBUser, error) {
	email = clean(email)
	var u = &user{
		email: email,
	}
	err := db.getByEmail.QueryRow(email).Scan(&u.id, &u.name)
	return u, err
}

func (db *UserDB) GetAllUsers(limit, offset int) ([]auth.DBUser, error) {

	var all = []auth.DBUser{}

	rows, err := db.getAll.Query(limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var u = &user{}
		err = rows.Scan(&u.id, &u.name, &u.email, &u.salt)
		if err != nil {
			return nil, err
		}
		all = append(all, u)
	}

	return all, nil
}

func (db *UserDB) InsertUser(name, email string) (auth.DBUser, error) {
	email = clean(email)
	result, err := db.insert.Exec(name, email)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &user{id: int(id), name: name, email: email}, nil
}

func (db *UserDB) LoginUser(email, password string) (auth.DBUser, error) {

	email = clean(email)

	var u = &user{
		email: email,
	}

	err := db.login.QueryRow(email).Scan(&u.id, &u.name, &u.salt, &u.pass)
	if err == sql.ErrNoRows {
		return nil, auth.ErrAuth // user not found
	}
	if err != nil {
		return nil, err
	}

	if u.hash(password) != u.pass {
		return nil, auth.ErrAuth // wrong password
	}

	return u, nil
}

func (db *UserDB) SetPassword(u auth.DBUser, password string) error {

	if password == "" {
		return errors.New("no password given")
	}

	if u.ID() == 0 {
		return errors.New("can't set password of user 0")
	}

	salt, err := util.RandomString32()
	if err != nil {
		return err
	}

	_, err = db.setPassword.Exec(salt, hash(salt, password), u.ID())
	if err != nil {
		return err
	}

	if su, ok := u.(*user); ok {
		su.salt = salt
		su.pass = hash(salt, password)
	}
	return nil
}
