package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brainloop/brainloop/internal/models"
	apperrors "github.com/brainloop/brainloop/pkg/errors"
)

func TestCreateChatSeedsMembersFromBrainGrants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	workspace := env.createWorkspace(t, "W1")
	brain := env.createSharedBrain(t, workspace.ID, "Docs")

	bob := env.createUser(t, "bob", models.RoleMember)
	carol := env.createUser(t, "carol", models.RoleMember)
	team := env.createTeam(t, "ops", carol)

	_, err := env.brains.ShareWithUsers(ctx, brain.ID, []ShareRecipient{{Email: bob.Email}}, env.actor)
	require.NoError(t, err)
	require.NoError(t, env.engine.AddTeamsToBrain(ctx, brain.ID, []string{team.ID}, env.actor))

	chat, err := env.chats.CreateChat(ctx, CreateChatInput{BrainID: brain.ID, Title: "kickoff"}, env.actor)
	require.NoError(t, err)
	require.True(t, chat.IsNewChat)

	// New chat inherits the brain's full grant set: owner and bob direct,
	// carol through the team.
	grants := env.chatGrants(t, chat.ID)
	require.Len(t, grants, 3)
	require.Nil(t, findChatGrant(grants, env.owner.ID).TeamID)
	require.Nil(t, findChatGrant(grants, bob.ID).TeamID)
	carolGrant := findChatGrant(grants, carol.ID)
	require.NotNil(t, carolGrant.TeamID)
	require.Equal(t, team.ID, *carolGrant.TeamID)

	// The brain's team link is mirrored onto the chat.
	var links []models.ChatTeam
	require.NoError(t, env.db.Where("chat_id = ?", chat.ID).Find(&links).Error)
	require.Len(t, links, 1)
	require.Equal(t, team.ID, links[0].TeamID)

	// The existing members hear about the chat; the creator does not.
	events := env.sink.byType(models.NotificationChatInvitation)
	require.Len(t, events, 1)
	require.ElementsMatch(t, []string{bob.ID, carol.ID}, events[0].UserIDs)
	require.Equal(t, chat.ID, events[0].ResourceID)
}

func TestCreateChatRequiresBrainGrant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	workspace := env.createWorkspace(t, "W1")
	brain := env.createSharedBrain(t, workspace.ID, "Docs")

	mallory := env.createUser(t, "mallory", models.RoleMember)
	_, err := env.chats.CreateChat(ctx, CreateChatInput{BrainID: brain.ID, Title: "sneak"}, ActorFromUser(&mallory))
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = env.chats.CreateChat(ctx, CreateChatInput{BrainID: "missing"}, env.actor)
	require.ErrorIs(t, err, ErrBrainNotFound)
}

func TestExpandBrainToChatsSkipsDeletedChats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	workspace := env.createWorkspace(t, "W1")
	brain := env.createSharedBrain(t, workspace.ID, "Docs")

	kept, err := env.chats.CreateChat(ctx, CreateChatInput{BrainID: brain.ID, Title: "kept"}, env.actor)
	require.NoError(t, err)
	dropped, err := env.chats.CreateChat(ctx, CreateChatInput{BrainID: brain.ID, Title: "dropped"}, env.actor)
	require.NoError(t, err)
	require.NoError(t, env.chats.DeleteChat(ctx, dropped.ID, env.actor))

	bob := env.createUser(t, "bob", models.RoleMember)
	loaded, err := env.brains.GetByID(ctx, brain.ID, env.actor)
	require.NoError(t, err)
	require.NoError(t, env.chats.ExpandBrainToChats(ctx, loaded, []models.User{bob}, env.actor.UserID, models.DirectOrigin()))

	require.NotNil(t, findChatGrant(env.chatGrants(t, kept.ID), bob.ID))
	require.Nil(t, findChatGrant(env.chatGrants(t, dropped.ID), bob.ID))
}

func TestExpandBrainToChatsDeduplicatesDirectPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	workspace := env.createWorkspace(t, "W1")
	brain := env.createSharedBrain(t, workspace.ID, "Docs")

	chat, err := env.chats.CreateChat(ctx, CreateChatInput{BrainID: brain.ID, Title: "notes"}, env.actor)
	require.NoError(t, err)

	bob := env.createUser(t, "bob", models.RoleMember)
	loaded, err := env.brains.GetByID(ctx, brain.ID, env.actor)
	require.NoError(t, err)

	// Calling the direct path twice converges on a single row per (chat,
	// user) pair.
	require.NoError(t, env.chats.ExpandBrainToChats(ctx, loaded, []models.User{bob}, env.actor.UserID, models.DirectOrigin()))
	require.NoError(t, env.chats.ExpandBrainToChats(ctx, loaded, []models.User{bob}, env.actor.UserID, models.DirectOrigin()))

	var count int64
	require.NoError(t, env.db.Model(&models.ChatGrant{}).
		Where("chat_id = ? AND user_id = ? AND team_id IS NULL", chat.ID, bob.ID).
		Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRevokeOnlyTouchesDirectRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	workspace := env.createWorkspace(t, "W1")
	brain := env.createSharedBrain(t, workspace.ID, "Docs")

	bob := env.createUser(t, "bob", models.RoleMember)
	team := env.createTeam(t, "ops", bob)

	chat, err := env.chats.CreateChat(ctx, CreateChatInput{BrainID: brain.ID, Title: "notes"}, env.actor)
	require.NoError(t, err)

	loaded, err := env.brains.GetByID(ctx, brain.ID, env.actor)
	require.NoError(t, err)
	require.NoError(t, env.chats.ExpandBrainToChats(ctx, loaded, []models.User{bob}, env.actor.UserID, models.DirectOrigin()))
	require.NoError(t, env.chats.ExpandBrainToChats(ctx, loaded, []models.User{bob}, env.actor.UserID, models.TeamOrigin(team.ID)))

	require.NoError(t, env.chats.Revoke(ctx, brain.ID, bob.ID))

	grants := env.chatGrants(t, chat.ID)
	bobGrant := findChatGrant(grants, bob.ID)
	require.NotNil(t, bobGrant)
	require.True(t, bobGrant.Origin().IsTeam())
}

func TestRemoveTeamFromChat(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	workspace := env.createWorkspace(t, "W1")
	brain := env.createSharedBrain(t, workspace.ID, "Docs")

	bob := env.createUser(t, "bob", models.RoleMember)
	team := env.createTeam(t, "ops", bob)
	require.NoError(t, env.engine.AddTeamsToBrain(ctx, brain.ID, []string{team.ID}, env.actor))

	first, err := env.chats.CreateChat(ctx, CreateChatInput{BrainID: brain.ID, Title: "first"}, env.actor)
	require.NoError(t, err)
	second, err := env.chats.CreateChat(ctx, CreateChatInput{BrainID: brain.ID, Title: "second"}, env.actor)
	require.NoError(t, err)

	require.NoError(t, env.engine.DetachTeamFromChat(ctx, first.ID, team.ID, env.actor))

	// Only the targeted chat lost its tagged rows.
	require.Nil(t, findChatGrant(env.chatGrants(t, first.ID), bob.ID))
	require.NotNil(t, findChatGrant(env.chatGrants(t, second.ID), bob.ID))

	var links int64
	require.NoError(t, env.db.Model(&models.ChatTeam{}).Where("chat_id = ?", first.ID).Count(&links).Error)
	require.Zero(t, links)
}
