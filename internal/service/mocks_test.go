package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stillwater-labs/stillwater/internal/models"
	"github.com/stillwater-labs/stillwater/internal/realtime"
	"github.com/stillwater-labs/stillwater/internal/repository"
)

// --- Mock Repositories ---

type mockUserRepo struct {
	users map[uuid.UUID]*models.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*models.User)}
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return m.users[id], nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

type mockMeditationRepo struct {
	meditations map[uuid.UUID]*models.Meditation
}

func newMockMeditationRepo() *mockMeditationRepo {
	return &mockMeditationRepo{meditations: make(map[uuid.UUID]*models.Meditation)}
}

func (m *mockMeditationRepo) Create(ctx context.Context, med *models.Meditation) error {
	if med.ID == uuid.Nil {
		med.ID = uuid.New()
	}
	med.CreatedAt = time.Now()
	med.UpdatedAt = med.CreatedAt
	m.meditations[med.ID] = med
	return nil
}

func (m *mockMeditationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Meditation, error) {
	return m.meditations[id], nil
}

func (m *mockMeditationRepo) List(ctx context.Context, filter models.MeditationFilter, limit, offset int) ([]*models.Meditation, int, error) {
	var result []*models.Meditation
	for _, med := range m.meditations {
		if !med.IsActive {
			continue
		}
		if filter.Type != nil && med.Type != *filter.Type {
			continue
		}
		if filter.Category != nil && med.Category != *filter.Category {
			continue
		}
		if filter.Difficulty != nil && med.Difficulty != *filter.Difficulty {
			continue
		}
		result = append(result, med)
	}
	return result, len(result), nil
}

func (m *mockMeditationRepo) Update(ctx context.Context, med *models.Meditation) error {
	m.meditations[med.ID] = med
	return nil
}

func (m *mockMeditationRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	if med, ok := m.meditations[id]; ok {
		med.IsActive = false
	}
	return nil
}

type mockSessionRepo struct {
	sessions  map[uuid.UUID]*models.MeditationSession
	analytics []*models.SessionAnalytics
	order     []uuid.UUID
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[uuid.UUID]*models.MeditationSession)}
}

func (m *mockSessionRepo) Create(ctx context.Context, s *models.MeditationSession) error {
	for _, existing := range m.sessions {
		if existing.UserID == s.UserID && existing.Status == models.SessionStatusActive {
			return repository.ErrActiveSessionExists
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	m.sessions[s.ID] = s
	m.order = append(m.order, s.ID)
	return nil
}

func (m *mockSessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.MeditationSession, error) {
	return m.sessions[id], nil
}

func (m *mockSessionRepo) GetActiveByUser(ctx context.Context, userID uuid.UUID) (*models.MeditationSession, error) {
	for _, s := range m.sessions {
		if s.UserID == userID && s.Status == models.SessionStatusActive {
			return s, nil
		}
	}
	return nil, nil
}

func (m *mockSessionRepo) IncrementInterruptions(ctx context.Context, id uuid.UUID) (int, error) {
	s, ok := m.sessions[id]
	if !ok || s.Status != models.SessionStatusActive {
		return 0, nil
	}
	s.Interruptions++
	return s.Interruptions, nil
}

func (m *mockSessionRepo) Complete(ctx context.Context, s *models.MeditationSession, a *models.SessionAnalytics) error {
	m.sessions[s.ID] = s
	m.analytics = append(m.analytics, a)
	return nil
}

func (m *mockSessionRepo) Abandon(ctx context.Context, s *models.MeditationSession) error {
	m.sessions[s.ID] = s
	return nil
}

func (m *mockSessionRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.MeditationSession, int, error) {
	var result []*models.MeditationSession
	for _, id := range m.order {
		if s := m.sessions[id]; s.UserID == userID {
			result = append(result, s)
		}
	}
	total := len(result)
	if offset >= total {
		return nil, total, nil
	}
	result = result[offset:]
	if limit < len(result) {
		result = result[:limit]
	}
	return result, total, nil
}

func (m *mockSessionRepo) ListCompletedSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.MeditationSession, error) {
	var result []*models.MeditationSession
	for _, id := range m.order {
		s := m.sessions[id]
		if s.UserID == userID && s.Status == models.SessionStatusCompleted && !s.StartTime.Before(since) {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *mockSessionRepo) MarkAbandonedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for _, s := range m.sessions {
		if s.Status == models.SessionStatusActive && s.StartTime.Before(cutoff) {
			s.Status = models.SessionStatusAbandoned
			n++
		}
	}
	return n, nil
}

type mockAchievementRepo struct {
	byUser map[uuid.UUID][]*models.Achievement
}

func newMockAchievementRepo() *mockAchievementRepo {
	return &mockAchievementRepo{byUser: make(map[uuid.UUID][]*models.Achievement)}
}

// byType is a test-side lookup, not part of the repository interface.
func (m *mockAchievementRepo) byType(userID uuid.UUID, typ models.AchievementType) *models.Achievement {
	for _, a := range m.byUser[userID] {
		if a.Type == typ {
			return a
		}
	}
	return nil
}

func (m *mockAchievementRepo) InitializeForUser(ctx context.Context, userID uuid.UUID, rows []*models.Achievement) error {
	for _, row := range rows {
		if m.byType(userID, row.Type) != nil {
			continue
		}
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		row.CreatedAt = time.Now()
		row.UpdatedAt = row.CreatedAt
		m.byUser[userID] = append(m.byUser[userID], row)
	}
	return nil
}

func (m *mockAchievementRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Achievement, error) {
	return m.byUser[userID], nil
}

func (m *mockAchievementRepo) UpdateProgress(ctx context.Context, a *models.Achievement) error {
	for i, existing := range m.byUser[a.UserID] {
		if existing.ID != a.ID {
			continue
		}
		if existing.Completed && existing != a {
			return nil
		}
		a.UpdatedAt = time.Now()
		m.byUser[a.UserID][i] = a
	}
	return nil
}

type mockGroupRepo struct {
	sessions     map[uuid.UUID]*models.GroupSession
	participants map[uuid.UUID][]*models.Participant

	// beforeTransition, when set, runs before the status CAS. Tests use it
	// to interleave a concurrent transition.
	beforeTransition func()
}

func newMockGroupRepo() *mockGroupRepo {
	return &mockGroupRepo{
		sessions:     make(map[uuid.UUID]*models.GroupSession),
		participants: make(map[uuid.UUID][]*models.Participant),
	}
}

func (m *mockGroupRepo) Create(ctx context.Context, gs *models.GroupSession) error {
	if gs.ID == uuid.Nil {
		gs.ID = uuid.New()
	}
	gs.CreatedAt = time.Now()
	gs.UpdatedAt = gs.CreatedAt
	m.sessions[gs.ID] = gs
	return nil
}

func (m *mockGroupRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.GroupSession, error) {
	gs, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *gs
	copied.Participants = m.participants[id]
	return &copied, nil
}

func (m *mockGroupRepo) ListUpcoming(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.GroupSession, int, error) {
	var result []*models.GroupSession
	for id, gs := range m.sessions {
		if gs.Status != models.GroupSessionScheduled || !gs.ScheduledTime.After(time.Now()) {
			continue
		}
		if gs.IsPrivate && !m.isMember(id, userID) {
			continue
		}
		result = append(result, gs)
	}
	return result, len(result), nil
}

func (m *mockGroupRepo) isMember(sessionID, userID uuid.UUID) bool {
	if m.sessions[sessionID].HostID == userID {
		return true
	}
	for _, p := range m.participants[sessionID] {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

func (m *mockGroupRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.GroupSession, error) {
	var result []*models.GroupSession
	for id, gs := range m.sessions {
		if gs.HostID == userID {
			result = append(result, gs)
			continue
		}
		for _, p := range m.participants[id] {
			if p.UserID == userID {
				result = append(result, gs)
				break
			}
		}
	}
	return result, nil
}

func (m *mockGroupRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.GroupSessionStatus) (bool, error) {
	if m.beforeTransition != nil {
		m.beforeTransition()
	}
	gs, ok := m.sessions[id]
	if !ok || gs.Status != from {
		return false, nil
	}
	gs.Status = to
	return true, nil
}

func (m *mockGroupRepo) Join(ctx context.Context, sessionID, userID uuid.UUID) (bool, error) {
	gs, ok := m.sessions[sessionID]
	if !ok || !gs.Status.Joinable() {
		return false, nil
	}
	for _, p := range m.participants[sessionID] {
		if p.UserID == userID {
			p.Status = models.ParticipantJoined
			return true, nil
		}
	}
	joined := 0
	for _, p := range m.participants[sessionID] {
		if p.Status == models.ParticipantJoined {
			joined++
		}
	}
	if joined >= gs.MaxParticipants {
		return false, nil
	}
	m.participants[sessionID] = append(m.participants[sessionID], &models.Participant{
		ID:        uuid.New(),
		SessionID: sessionID,
		UserID:    userID,
		Status:    models.ParticipantJoined,
		JoinedAt:  time.Now(),
	})
	return true, nil
}

func (m *mockGroupRepo) GetParticipant(ctx context.Context, sessionID, userID uuid.UUID) (*models.Participant, error) {
	for _, p := range m.participants[sessionID] {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockGroupRepo) ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]*models.Participant, error) {
	return m.participants[sessionID], nil
}

func (m *mockGroupRepo) MarkLeft(ctx context.Context, sessionID, userID uuid.UUID) (bool, error) {
	for _, p := range m.participants[sessionID] {
		if p.UserID == userID && p.Status == models.ParticipantJoined {
			p.Status = models.ParticipantLeft
			return true, nil
		}
	}
	return false, nil
}

func (m *mockGroupRepo) MarkCompleted(ctx context.Context, participant *models.Participant) (bool, error) {
	for _, p := range m.participants[participant.SessionID] {
		if p.UserID == participant.UserID && p.Status == models.ParticipantJoined {
			p.Status = models.ParticipantCompleted
			p.DurationCompleted = participant.DurationCompleted
			p.MoodBefore = participant.MoodBefore
			p.MoodAfter = participant.MoodAfter
			return true, nil
		}
	}
	return false, nil
}

type mockChatRepo struct {
	messages map[uuid.UUID][]*models.ChatMessage
}

func newMockChatRepo() *mockChatRepo {
	return &mockChatRepo{messages: make(map[uuid.UUID][]*models.ChatMessage)}
}

func (m *mockChatRepo) Create(ctx context.Context, msg *models.ChatMessage) error {
	msg.CreatedAt = time.Now()
	m.messages[msg.SessionID] = append(m.messages[msg.SessionID], msg)
	return nil
}

func (m *mockChatRepo) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int, before string) ([]*models.ChatMessage, error) {
	all := m.messages[sessionID]
	var result []*models.ChatMessage
	for i := len(all) - 1; i >= 0 && len(result) < limit; i-- {
		if before != "" && all[i].ID >= before {
			continue
		}
		result = append(result, all[i])
	}
	return result, nil
}

type mockFriendRepo struct {
	friendships map[uuid.UUID]*models.Friendship
	blocks      map[string]bool // "blocker_blocked"
	users       *mockUserRepo
}

func newMockFriendRepo(users *mockUserRepo) *mockFriendRepo {
	return &mockFriendRepo{
		friendships: make(map[uuid.UUID]*models.Friendship),
		blocks:      make(map[string]bool),
		users:       users,
	}
}

func (m *mockFriendRepo) CreateRequest(ctx context.Context, f *models.Friendship) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	f.CreatedAt = time.Now()
	f.UpdatedAt = f.CreatedAt
	m.friendships[f.ID] = f
	return nil
}

func (m *mockFriendRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Friendship, error) {
	return m.friendships[id], nil
}

func (m *mockFriendRepo) GetBetween(ctx context.Context, a, b uuid.UUID) (*models.Friendship, error) {
	for _, f := range m.friendships {
		if (f.RequesterID == a && f.RecipientID == b) || (f.RequesterID == b && f.RecipientID == a) {
			return f, nil
		}
	}
	return nil, nil
}

func (m *mockFriendRepo) Accept(ctx context.Context, id, recipientID uuid.UUID) (bool, error) {
	f, ok := m.friendships[id]
	if !ok || f.Status != models.FriendshipPending || f.RecipientID != recipientID {
		return false, nil
	}
	f.Status = models.FriendshipAccepted
	return true, nil
}

func (m *mockFriendRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.friendships, id)
	return nil
}

func (m *mockFriendRepo) ListFriends(ctx context.Context, userID uuid.UUID) ([]*models.User, error) {
	var result []*models.User
	for _, f := range m.friendships {
		if f.Status != models.FriendshipAccepted {
			continue
		}
		var other uuid.UUID
		switch userID {
		case f.RequesterID:
			other = f.RecipientID
		case f.RecipientID:
			other = f.RequesterID
		default:
			continue
		}
		if u := m.users.users[other]; u != nil {
			result = append(result, u)
		}
	}
	return result, nil
}

func (m *mockFriendRepo) ListPending(ctx context.Context, userID uuid.UUID) ([]*models.Friendship, error) {
	var result []*models.Friendship
	for _, f := range m.friendships {
		if f.Status == models.FriendshipPending && f.RecipientID == userID {
			result = append(result, f)
		}
	}
	return result, nil
}

func (m *mockFriendRepo) Block(ctx context.Context, userID, blockedID uuid.UUID) error {
	m.blocks[userID.String()+"_"+blockedID.String()] = true
	return nil
}

func (m *mockFriendRepo) Unblock(ctx context.Context, userID, blockedID uuid.UUID) error {
	delete(m.blocks, userID.String()+"_"+blockedID.String())
	return nil
}

func (m *mockFriendRepo) IsBlockedEither(ctx context.Context, a, b uuid.UUID) (bool, error) {
	return m.blocks[a.String()+"_"+b.String()] || m.blocks[b.String()+"_"+a.String()], nil
}

// --- Mock Publisher & Enqueuer ---

type mockPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
	err    error
}

func (m *mockPublisher) PublishEvent(ctx context.Context, event realtime.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0, len(m.events))
	for _, e := range m.events {
		types = append(types, e.Type)
	}
	return types
}

type mockEnqueuer struct {
	enqueued []uuid.UUID
	err      error
}

func (m *mockEnqueuer) EnqueueProcessSession(ctx context.Context, sessionID uuid.UUID) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, sessionID)
	return nil
}
