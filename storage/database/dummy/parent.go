package dummydb

import (
	"context"

	"github.com/trezcool/qlearn/core"
	"github.com/trezcool/qlearn/core/parent"
	"github.com/trezcool/qlearn/core/user"
)

type parentRepository struct {
	db *DB
}

var _ parent.Repository = (*parentRepository)(nil)

func NewParentRepository(db *DB) parent.Repository {
	return &parentRepository{db: db}
}

func (repo *parentRepository) LinkParent(_ context.Context, parentID, studentID int) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.users[parentID]; !ok {
		return user.ErrNotFound
	}
	if _, ok := repo.db.users[studentID]; !ok {
		return user.ErrNotFound
	}
	repo.db.parentLinks[pair{parentID, studentID}] = struct{}{}
	return nil
}

func (repo *parentRepository) IsLinked(_ context.Context, parentID, studentID int) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	_, ok := repo.db.parentLinks[pair{parentID, studentID}]
	return ok, nil
}

func (repo *parentRepository) Children(_ context.Context, parentID int) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	children := make([]user.User, 0)
	for key := range repo.db.parentLinks {
		if key.a != parentID {
			continue
		}
		if usr, ok := repo.db.users[key.b]; ok {
			children = append(children, *usr)
		}
	}
	sortUsers(children, []core.DBOrdering{{Field: "name", Ascending: true}})
	return children, nil
}

func (repo *parentRepository) SaveMessage(_ context.Context, msg parent.Message) (parent.Message, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	msg.ID = repo.db.nextID("messages")
	stored := msg
	repo.db.messages[msg.ID] = &stored
	return msg, nil
}
