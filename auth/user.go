package auth

type DBUser interface {
	ID() int
	Name() string // display name
	Email() string
}

type UserDB interface {
	ChangePassword(u DBUser, old, new string) error
	Delete(u DBUser) error
	GetUser(id int) (DBUser, error)
	GetUserByEmail(email string) (DBUser, error)
	GetAllUsers(limit, offset int) ([]DBUser, error)
	InsertUser(name, email string) (DBUser, error)
	LoginUser(email, password string) (DBUser, error)
	SetPassword(u DBUser, password string) error
	Writeable() bool
}
