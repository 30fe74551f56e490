package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/brainloop/brainloop/internal/database/testutil"
	"github.com/brainloop/brainloop/internal/models"
)

// captureSink records notification events emitted during a test.
type captureSink struct {
	mu     sync.Mutex
	events []NotificationEvent
}

func (s *captureSink) Notify(event NotificationEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *captureSink) byType(eventType string) []NotificationEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []NotificationEvent
	for _, event := range s.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

func (s *captureSink) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

type testEnv struct {
	db         *gorm.DB
	sink       *captureSink
	users      *UserService
	workspaces *WorkspaceService
	teams      *TeamService
	brains     *BrainService
	chats      *ChatMemberService
	engine     *PropagationService

	company models.Company
	owner   models.User
	actor   ActorContext
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	sink := &captureSink{}
	guard, err := NewAccessGuard(db)
	require.NoError(t, err)
	audit, err := NewAuditService(db)
	require.NoError(t, err)
	users, err := NewUserService(db, audit)
	require.NoError(t, err)
	workspaces, err := NewWorkspaceService(db, guard, audit, sink)
	require.NoError(t, err)
	teams, err := NewTeamService(db, audit)
	require.NoError(t, err)
	chats, err := NewChatMemberService(db, guard, audit, sink)
	require.NoError(t, err)
	brains, err := NewBrainService(db, guard, chats, audit, sink)
	require.NoError(t, err)
	engine, err := NewPropagationService(db, guard, teams, brains, chats, audit, sink)
	require.NoError(t, err)

	company := models.Company{Name: "Acme"}
	require.NoError(t, db.Create(&company).Error)

	env := &testEnv{
		db:         db,
		sink:       sink,
		users:      users,
		workspaces: workspaces,
		teams:      teams,
		brains:     brains,
		chats:      chats,
		engine:     engine,
		company:    company,
	}
	env.owner = env.createUser(t, "alice", models.RoleOwner)
	env.actor = ActorFromUser(&env.owner)
	return env
}

func (e *testEnv) createUser(t *testing.T, username, role string) models.User {
	t.Helper()

	user, err := e.users.Create(context.Background(), CreateUserInput{
		Username:            username,
		Email:               fmt.Sprintf("%s@example.com", username),
		Password:            "s3cret-pass",
		RoleCode:            role,
		CompanyID:           e.company.ID,
		PrivateBrainVisible: true,
	})
	require.NoError(t, err)
	return *user
}

func (e *testEnv) createTeam(t *testing.T, name string, members ...models.User) models.Team {
	t.Helper()

	ids := make([]string, 0, len(members))
	for _, member := range members {
		ids = append(ids, member.ID)
	}
	team, err := e.teams.Create(context.Background(), name, ids, e.actor)
	require.NoError(t, err)
	return *team
}

func (e *testEnv) createWorkspace(t *testing.T, title string) models.Workspace {
	t.Helper()

	workspace, err := e.workspaces.Create(context.Background(), CreateWorkspaceInput{Title: title}, e.actor)
	require.NoError(t, err)
	return *workspace
}

func (e *testEnv) createSharedBrain(t *testing.T, workspaceID, title string) models.Brain {
	t.Helper()

	brain, err := e.brains.Create(context.Background(), CreateBrainInput{
		WorkspaceID: workspaceID,
		Title:       title,
		IsShare:     true,
	}, e.actor)
	require.NoError(t, err)
	return *brain
}

func (e *testEnv) workspaceGrants(t *testing.T, workspaceID string) []models.WorkspaceGrant {
	t.Helper()

	var grants []models.WorkspaceGrant
	require.NoError(t, e.db.Where("workspace_id = ?", workspaceID).Find(&grants).Error)
	return grants
}

func (e *testEnv) brainGrants(t *testing.T, brainID string) []models.BrainGrant {
	t.Helper()

	var grants []models.BrainGrant
	require.NoError(t, e.db.Where("brain_id = ?", brainID).Find(&grants).Error)
	return grants
}

func (e *testEnv) chatGrants(t *testing.T, chatID string) []models.ChatGrant {
	t.Helper()

	var grants []models.ChatGrant
	require.NoError(t, e.db.Where("chat_id = ?", chatID).Find(&grants).Error)
	return grants
}

func findWorkspaceGrant(grants []models.WorkspaceGrant, userID string) *models.WorkspaceGrant {
	for i := range grants {
		if grants[i].UserID == userID {
			return &grants[i]
		}
	}
	return nil
}

func findBrainGrant(grants []models.BrainGrant, userID string) *models.BrainGrant {
	for i := range grants {
		if grants[i].UserID == userID {
			return &grants[i]
		}
	}
	return nil
}

func findChatGrant(grants []models.ChatGrant, userID string) *models.ChatGrant {
	for i := range grants {
		if grants[i].UserID == userID {
			return &grants[i]
		}
	}
	return nil
}
