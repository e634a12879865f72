package auth

type DBGroup interface {
	ID() int
	Name() string
	HasMember(u DBUser) (bool, error)
	Members() (map[int]interface{}, error) // user id => struct{}
}

type GroupDB interface {
	Delete(g DBGroup) error
	GetGroup(id int) (DBGroup, error)
	GetGroupByName(name string) (DBGroup, error)
	GetGroupsOf(u DBUser) ([]DBGroup, error)
	GetAllGroups(limit, offset int) ([]DBGroup, error)
	InsertGroup(name string) error
	Join(g DBGroup, u DBUser) error
	Leave(g DBGroup, u DBUser) error
	Writeable() bool
}
