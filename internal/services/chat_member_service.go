package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/brainloop/brainloop/internal/models"
	apperrors "github.com/brainloop/brainloop/pkg/errors"
	"github.com/brainloop/brainloop/pkg/metrics"
)

var (
	// ErrChatNotFound indicates the requested chat does not exist.
	ErrChatNotFound = apperrors.New("CHAT_NOT_FOUND", "Chat not found", http.StatusNotFound)
)

// CreateChatInput captures new chat metadata.
type CreateChatInput struct {
	BrainID string
	Title   string
}

// ChatMemberService maintains per-chat member rows derived from brain-level
// grants. It owns chat lifecycle so every new chat starts consistent with
// its brain's current grant set.
type ChatMemberService struct {
	db       *gorm.DB
	guard    *AccessGuard
	audit    *AuditService
	notifier NotificationSink
}

// NewChatMemberService constructs a ChatMemberService instance.
func NewChatMemberService(db *gorm.DB, guard *AccessGuard, audit *AuditService, notifier NotificationSink) (*ChatMemberService, error) {
	if db == nil {
		return nil, errors.New("chat member service: db is required")
	}
	if guard == nil {
		return nil, errors.New("chat member service: access guard is required")
	}
	return &ChatMemberService{db: db, guard: guard, audit: audit, notifier: notifier}, nil
}

// CreateChat registers a chat under a brain and derives its initial member
// rows from the brain's current grants and team stubs.
func (s *ChatMemberService) CreateChat(ctx context.Context, input CreateChatInput, actor ActorContext) (*models.Chat, error) {
	ctx = ensureContext(ctx)

	if !actor.Valid() {
		return nil, apperrors.ErrUnauthorized
	}

	var brain models.Brain
	err := s.db.WithContext(ctx).Preload("Teams").First(&brain, "id = ?", input.BrainID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBrainNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("chat member service: load brain: %w", err)
	}

	if grant, err := s.guard.BrainGrant(ctx, brain.ID, actor.UserID); err != nil {
		return nil, err
	} else if grant == nil {
		return nil, apperrors.ErrUnauthorized
	}

	chat := &models.Chat{
		BrainID:     brain.ID,
		WorkspaceID: brain.WorkspaceID,
		Title:       strings.TrimSpace(input.Title),
		IsNewChat:   true,
	}

	var grants []models.BrainGrant
	if err := s.db.WithContext(ctx).Where("brain_id = ?", brain.ID).Find(&grants).Error; err != nil {
		return nil, fmt.Errorf("chat member service: load brain grants: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return fmt.Errorf("chat member service: create chat: %w", err)
		}

		for _, stub := range brain.Teams {
			link := models.ChatTeam{ChatID: chat.ID, TeamID: stub.TeamID}
			if err := tx.Create(&link).Error; err != nil {
				return fmt.Errorf("chat member service: link team: %w", err)
			}
		}

		for _, grant := range grants {
			member := models.ChatGrant{
				ChatID:    chat.ID,
				BrainID:   brain.ID,
				UserID:    grant.UserID,
				UserEmail: grant.UserEmail,
				TeamID:    grant.TeamID,
				IsNewChat: true,
			}
			if err := tx.Create(&member).Error; err != nil {
				return fmt.Errorf("chat member service: seed member: %w", err)
			}
			metrics.GrantWrites.WithLabelValues("chat", "insert").Inc()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	memberIDs := make([]string, 0, len(grants))
	for _, grant := range grants {
		if grant.UserID == actor.UserID {
			continue
		}
		memberIDs = append(memberIDs, grant.UserID)
	}
	notify(s.notifier, NotificationEvent{
		Type:         models.NotificationChatInvitation,
		UserIDs:      normaliseIDs(memberIDs),
		ActorID:      actor.UserID,
		ResourceID:   chat.ID,
		ResourceName: chat.Title,
	})

	recordAudit(s.audit, ctx, AuditEntry{
		Action:   "chat.create",
		Resource: chat.ID,
		Result:   "success",
		Metadata: map[string]any{"brain_id": brain.ID},
	})

	return chat, nil
}

// ListChats returns the active chats under a brain.
func (s *ChatMemberService) ListChats(ctx context.Context, brainID string, actor ActorContext) ([]models.Chat, error) {
	ctx = ensureContext(ctx)

	if grant, err := s.guard.BrainGrant(ctx, brainID, actor.UserID); err != nil {
		return nil, err
	} else if grant == nil {
		return nil, apperrors.ErrUnauthorized
	}

	var chats []models.Chat
	if err := s.db.WithContext(ctx).
		Preload("Teams").
		Where("brain_id = ?", brainID).
		Order("created_at ASC").
		Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("chat member service: list chats: %w", err)
	}
	return chats, nil
}

// DeleteChat soft-deletes a chat. Grant rows stay behind for restore and are
// swept by maintenance once the retention window passes.
func (s *ChatMemberService) DeleteChat(ctx context.Context, chatID string, actor ActorContext) error {
	ctx = ensureContext(ctx)

	var chat models.Chat
	err := s.db.WithContext(ctx).First(&chat, "id = ?", chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrChatNotFound
	}
	if err != nil {
		return fmt.Errorf("chat member service: load chat: %w", err)
	}

	if grant, err := s.guard.BrainGrant(ctx, chat.BrainID, actor.UserID); err != nil {
		return err
	} else if grant == nil {
		return apperrors.ErrUnauthorized
	}

	if err := s.db.WithContext(ctx).Delete(&chat).Error; err != nil {
		return fmt.Errorf("chat member service: delete chat: %w", err)
	}

	recordAudit(s.audit, ctx, AuditEntry{Action: "chat.delete", Resource: chatID, Result: "success"})
	return nil
}

// ExpandBrainToChats inserts one member row per (active chat, user) pair for
// the brain. Team-derived expansion first links the team to each chat. Both
// origins de-duplicate against existing rows keyed by (chat, user, team), so
// repeated delivery of the same cascade converges instead of duplicating.
func (s *ChatMemberService) ExpandBrainToChats(ctx context.Context, brain *models.Brain, users []models.User, actorID string, origin models.GrantOrigin) error {
	ctx = ensureContext(ctx)

	if brain == nil {
		return ErrBrainNotFound
	}
	if len(users) == 0 {
		return nil
	}

	var chats []models.Chat
	if err := s.db.WithContext(ctx).
		Where("brain_id = ?", brain.ID).
		Find(&chats).Error; err != nil {
		return fmt.Errorf("chat member service: load chats: %w", err)
	}
	if len(chats) == 0 {
		return nil
	}

	teamID := origin.TeamID()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if teamID != nil {
			for _, chat := range chats {
				link := models.ChatTeam{ChatID: chat.ID, TeamID: *teamID}
				if err := tx.Where(models.ChatTeam{ChatID: chat.ID, TeamID: *teamID}).
					FirstOrCreate(&link).Error; err != nil {
					return fmt.Errorf("chat member service: link team: %w", err)
				}
			}
		}

		existing, err := loadChatGrantKeys(tx, brain.ID, teamID)
		if err != nil {
			return err
		}

		for _, chat := range chats {
			for _, user := range users {
				key := chatGrantKey(chat.ID, user.ID, teamID)
				if _, ok := existing[key]; ok {
					continue
				}

				member := models.ChatGrant{
					ChatID:    chat.ID,
					BrainID:   brain.ID,
					UserID:    user.ID,
					UserEmail: user.Email,
					TeamID:    teamID,
					IsNewChat: chat.IsNewChat,
				}
				if err := tx.Create(&member).Error; err != nil {
					return fmt.Errorf("chat member service: create member: %w", err)
				}

				existing[key] = struct{}{}
				metrics.GrantWrites.WithLabelValues("chat", "insert").Inc()
			}
		}
		return nil
	})
}

// Revoke deletes the direct member rows for the user across all chats of the
// brain. Team-derived rows are untouched.
func (s *ChatMemberService) Revoke(ctx context.Context, brainID, userID string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("brain_id = ? AND user_id = ? AND team_id IS NULL", brainID, userID).
		Delete(&models.ChatGrant{})
	if result.Error != nil {
		return fmt.Errorf("chat member service: revoke members: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		metrics.GrantWrites.WithLabelValues("chat", "delete").Add(float64(result.RowsAffected))
	}
	return nil
}

// RemoveTeamGrants deletes every team-derived member row and team link for
// the brain's chats.
func (s *ChatMemberService) RemoveTeamGrants(ctx context.Context, brainID, teamID string) error {
	ctx = ensureContext(ctx)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("brain_id = ? AND team_id = ?", brainID, teamID).Delete(&models.ChatGrant{})
		if result.Error != nil {
			return fmt.Errorf("chat member service: purge team members: %w", result.Error)
		}
		if result.RowsAffected > 0 {
			metrics.GrantWrites.WithLabelValues("chat", "delete").Add(float64(result.RowsAffected))
		}

		var chatIDs []string
		if err := tx.Model(&models.Chat{}).
			Unscoped().
			Where("brain_id = ?", brainID).
			Pluck("id", &chatIDs).Error; err != nil {
			return fmt.Errorf("chat member service: load chat ids: %w", err)
		}
		if len(chatIDs) == 0 {
			return nil
		}

		if err := tx.Where("chat_id IN ? AND team_id = ?", chatIDs, teamID).
			Delete(&models.ChatTeam{}).Error; err != nil {
			return fmt.Errorf("chat member service: unlink team: %w", err)
		}
		return nil
	})
}

// RemoveTeamFromChat deletes the team link and its derived member rows for a
// single chat.
func (s *ChatMemberService) RemoveTeamFromChat(ctx context.Context, chatID, teamID string) error {
	ctx = ensureContext(ctx)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("chat_id = ? AND team_id = ?", chatID, teamID).Delete(&models.ChatGrant{})
		if result.Error != nil {
			return fmt.Errorf("chat member service: purge chat team members: %w", result.Error)
		}
		if result.RowsAffected > 0 {
			metrics.GrantWrites.WithLabelValues("chat", "delete").Add(float64(result.RowsAffected))
		}

		if err := tx.Where("chat_id = ? AND team_id = ?", chatID, teamID).
			Delete(&models.ChatTeam{}).Error; err != nil {
			return fmt.Errorf("chat member service: unlink chat team: %w", err)
		}
		return nil
	})
}

func loadChatGrantKeys(tx *gorm.DB, brainID string, teamID *string) (map[string]struct{}, error) {
	query := tx.Model(&models.ChatGrant{}).Where("brain_id = ?", brainID)
	if teamID == nil {
		query = query.Where("team_id IS NULL")
	} else {
		query = query.Where("team_id = ?", *teamID)
	}

	var rows []models.ChatGrant
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("chat member service: load existing members: %w", err)
	}

	keys := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		keys[chatGrantKey(row.ChatID, row.UserID, row.TeamID)] = struct{}{}
	}
	return keys, nil
}

func chatGrantKey(chatID, userID string, teamID *string) string {
	team := ""
	if teamID != nil {
		team = *teamID
	}
	return chatID + "|" + userID + "|" + team
}
