package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/brackup/brackup-api/models"
	"github.com/brackup/brackup-api/repositories"
)

type teamServiceMocks struct {
	teamRepo        *MockTeamRepository
	memberRepo      *MockMemberRepository
	gameRepo        *MockGameRepository
	userRepo        *MockUserRepository
	participantRepo *MockParticipantRepository
	uploader        *MockFileUploader
}

func newTestTeamService() (*teamService, *teamServiceMocks) {
	m := &teamServiceMocks{
		teamRepo:        new(MockTeamRepository),
		memberRepo:      new(MockMemberRepository),
		gameRepo:        new(MockGameRepository),
		userRepo:        new(MockUserRepository),
		participantRepo: new(MockParticipantRepository),
		uploader:        new(MockFileUploader),
	}
	svc := &teamService{
		tx:              stubTxRunner{},
		teamRepo:        m.teamRepo,
		memberRepo:      m.memberRepo,
		gameRepo:        m.gameRepo,
		userRepo:        m.userRepo,
		participantRepo: m.participantRepo,
		uploader:        m.uploader,
	}
	return svc, m
}

// expectTeamReload wires the calls made by GetTeamByID, which every
// mutating operation performs before returning the fresh team.
func expectTeamReload(m *teamServiceMocks, team *models.Team, game *models.Game, captain *models.User, members []models.TeamMember) {
	m.teamRepo.On("GetByID", mock.Anything, team.ID).Return(team, nil)
	m.gameRepo.On("GetByID", mock.Anything, team.GameID).Return(game, nil)
	m.userRepo.On("GetByID", mock.Anything, team.CaptainID).Return(captain, nil)
	m.memberRepo.On("ListByTeam", mock.Anything, team.ID).Return(members, nil)
	m.participantRepo.On("ListByTeam", mock.Anything, team.ID).Return([]models.TournamentParticipant{}, nil)
}

func TestTeamService_CreateTeam(t *testing.T) {
	ctx := context.Background()

	game := &models.Game{ID: 3, Name: "Counter-Strike 2", Slug: "counter-strike-2", TeamSize: 5}
	creator := &models.User{ID: 7, DiscordUsername: "captain_jane"}

	t.Run("creates team and captain membership together", func(t *testing.T) {
		svc, m := newTestTeamService()

		m.gameRepo.On("GetByID", mock.Anything, 3).Return(game, nil)
		m.teamRepo.On("GetByNameAndGame", mock.Anything, "Night Owls", 3).
			Return(nil, repositories.ErrTeamNotFound)

		m.teamRepo.On("Create", mock.Anything, mock.Anything, mock.AnythingOfType("*models.Team")).
			Run(func(args mock.Arguments) {
				args.Get(2).(*models.Team).ID = 42
			}).
			Return(nil)
		m.memberRepo.On("Create", mock.Anything, mock.Anything, mock.MatchedBy(func(member *models.TeamMember) bool {
			return member.TeamID == 42 && member.UserID == 7 && member.Role == models.MemberRoleCaptain
		})).Return(nil)

		created := &models.Team{ID: 42, Name: "Night Owls", GameID: 3, CaptainID: 7}
		expectTeamReload(m, created, game, creator, []models.TeamMember{
			{TeamID: 42, UserID: 7, Role: models.MemberRoleCaptain},
		})

		team, err := svc.CreateTeam(ctx, CreateTeamInput{Name: "Night Owls", GameID: 3, CreatorID: 7})
		require.NoError(t, err)
		require.NotNil(t, team)
		assert.Equal(t, 42, team.ID)
		assert.Equal(t, 7, team.CaptainID)
		assert.Equal(t, 1, team.MemberCount)
		m.teamRepo.AssertExpectations(t)
		m.memberRepo.AssertExpectations(t)
	})

	t.Run("rejects too short name without touching repositories", func(t *testing.T) {
		svc, m := newTestTeamService()

		_, err := svc.CreateTeam(ctx, CreateTeamInput{Name: "x", GameID: 3, CreatorID: 7})

		var svcErr *Error
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, KindValidation, svcErr.Kind)
		m.teamRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects unknown game", func(t *testing.T) {
		svc, m := newTestTeamService()

		m.gameRepo.On("GetByID", mock.Anything, 99).Return(nil, repositories.ErrGameNotFound)

		_, err := svc.CreateTeam(ctx, CreateTeamInput{Name: "Night Owls", GameID: 99, CreatorID: 7})

		var svcErr *Error
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, KindNotFound, svcErr.Kind)
		assert.Equal(t, "game", svcErr.Entity)
	})

	t.Run("rejects duplicate name within the same game", func(t *testing.T) {
		svc, m := newTestTeamService()

		m.gameRepo.On("GetByID", mock.Anything, 3).Return(game, nil)
		m.teamRepo.On("GetByNameAndGame", mock.Anything, "Night Owls", 3).
			Return(&models.Team{ID: 1, Name: "Night Owls", GameID: 3}, nil)

		_, err := svc.CreateTeam(ctx, CreateTeamInput{Name: "Night Owls", GameID: 3, CreatorID: 7})

		assert.True(t, IsConflict(err))
		m.teamRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("member insert failure aborts the whole creation", func(t *testing.T) {
		svc, m := newTestTeamService()

		m.gameRepo.On("GetByID", mock.Anything, 3).Return(game, nil)
		m.teamRepo.On("GetByNameAndGame", mock.Anything, "Night Owls", 3).
			Return(nil, repositories.ErrTeamNotFound)
		m.teamRepo.On("Create", mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				args.Get(2).(*models.Team).ID = 42
			}).
			Return(nil)
		m.memberRepo.On("Create", mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("insert failed"))

		_, err := svc.CreateTeam(ctx, CreateTeamInput{Name: "Night Owls", GameID: 3, CreatorID: 7})

		require.Error(t, err)
		m.teamRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})
}

func TestTeamService_AddMember(t *testing.T) {
	ctx := context.Background()

	game := &models.Game{ID: 3, Name: "Counter-Strike 2", TeamSize: 5}
	team := &models.Team{ID: 42, Name: "Night Owls", GameID: 3, CaptainID: 7}
	captain := &models.User{ID: 7, DiscordUsername: "captain_jane"}

	t.Run("only the captain can add members", func(t *testing.T) {
		svc, m := newTestTeamService()

		m.teamRepo.On("GetByID", mock.Anything, 42).Return(team, nil)

		_, err := svc.AddMember(ctx, 42, 8, 99)

		var svcErr *Error
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, KindForbidden, svcErr.Kind)
		m.memberRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects when team is at the game's size limit", func(t *testing.T) {
		svc, m := newTestTeamService()

		m.teamRepo.On("GetByID", mock.Anything, 42).Return(team, nil)
		m.gameRepo.On("GetByID", mock.Anything, 3).Return(game, nil)
		m.memberRepo.On("CountByTeam", mock.Anything, 42).Return(5, nil)

		_, err := svc.AddMember(ctx, 42, 8, 7)

		assert.True(t, IsConflict(err))
		m.memberRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects a user who is already a member", func(t *testing.T) {
		svc, m := newTestTeamService()

		m.teamRepo.On("GetByID", mock.Anything, 42).Return(team, nil)
		m.gameRepo.On("GetByID", mock.Anything, 3).Return(game, nil)
		m.memberRepo.On("CountByTeam", mock.Anything, 42).Return(2, nil)
		m.memberRepo.On("GetByTeamAndUser", mock.Anything, 42, 8).
			Return(&models.TeamMember{TeamID: 42, UserID: 8}, nil)

		_, err := svc.AddMember(ctx, 42, 8, 7)

		assert.True(t, IsConflict(err))
	})

	t.Run("adds a member as MEMBER and returns the fresh roster", func(t *testing.T) {
		svc, m := newTestTeamService()

		m.teamRepo.On("GetByID", mock.Anything, 42).Return(team, nil)
		m.gameRepo.On("GetByID", mock.Anything, 3).Return(game, nil)
		m.memberRepo.On("CountByTeam", mock.Anything, 42).Return(2, nil)
		m.memberRepo.On("GetByTeamAndUser", mock.Anything, 42, 8).
			Return(nil, repositories.ErrMemberNotFound)
		m.memberRepo.On("Create", mock.Anything, nil, mock.MatchedBy(func(member *models.TeamMember) bool {
			return member.TeamID == 42 && member.UserID == 8 && member.Role == models.MemberRoleMember
		})).Return(nil)

		m.userRepo.On("GetByID", mock.Anything, 7).Return(captain, nil)
		m.memberRepo.On("ListByTeam", mock.Anything, 42).Return([]models.TeamMember{
			{TeamID: 42, UserID: 7, Role: models.MemberRoleCaptain},
			{TeamID: 42, UserID: 8, Role: models.MemberRoleMember},
		}, nil)
		m.participantRepo.On("ListByTeam", mock.Anything, 42).Return([]models.TournamentParticipant{}, nil)

		result, err := svc.AddMember(ctx, 42, 8, 7)
		require.NoError(t, err)
		assert.Equal(t, 2, result.MemberCount)
		assert.Equal(t, models.MemberRoleCaptain, result.Members[0].Role)
		m.memberRepo.AssertExpectations(t)
	})

	t.Run("maps unique violation on concurrent add to conflict", func(t *testing.T) {
		svc, m := newTestTeamService()

		m.teamRepo.On("GetByID", mock.Anything, 42).Return(team, nil)
		m.gameRepo.On("GetByID", mock.Anything, 3).Return(game, nil)
		m.memberRepo.On("CountByTeam", mock.Anything, 42).Return(2, nil)
		m.memberRepo.On("GetByTeamAndUser", mock.Anything, 42, 8).
			Return(nil, repositories.ErrMemberNotFound)
		m.memberRepo.On("Create", mock.Anything, nil, mock.Anything).
			Return(repositories.ErrMemberConflict)

		_, err := svc.AddMember(ctx, 42, 8, 7)

		assert.True(t, IsConflict(err))
	})
}

func TestTeamService_RemoveMember(t *testing.T) {
	ctx := context.Background()

	team := &models.Team{ID: 42, Name: "Night Owls", GameID: 3, CaptainID: 7}

	t.Run("captain removes a member", func(t *testing.T) {
		svc, m := newTestTeamService()

		m.teamRepo.On("GetByID", mock.Anything, 42).Return(team, nil)
		m.memberRepo.On("Delete", mock.Anything, 42, 8).Return(nil)

		err := svc.RemoveMember(ctx, 42, 8, 7)
		require.NoError(t, err)
		m.memberRepo.AssertExpectations(t)
	})

	t.Run("member removes themselves", func(t *testing.T) {
		svc, m := newTestTeamService()

		m.teamRepo.On("GetByID", mock.Anything, 42).Return(team, nil)
		m.memberRepo.On("Delete", mock.Anything, 42, 8).Return(nil)

		err := svc.RemoveMember(ctx, 42, 8, 8)
		require.NoError(t, err)
	})

	t.Run("a third party cannot remove a member", func(t *testing.T) {
		svc, m := newTestTeamService()

		m.teamRepo.On("GetByID", mock.Anything, 42).Return(team, nil)

		err := svc.RemoveMember(ctx, 42, 8, 9)

		var svcErr *Error
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, KindForbidden, svcErr.Kind)
		m.memberRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("captain cannot be removed before transferring captaincy", func(t *testing.T) {
		svc, m := newTestTeamService()

		m.teamRepo.On("GetByID", mock.Anything, 42).Return(team, nil)

		err := svc.RemoveMember(ctx, 42, 7, 7)

		assert.True(t, IsConflict(err))
		m.memberRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing membership maps to not found", func(t *testing.T) {
		svc, m := newTestTeamService()

		m.teamRepo.On("GetByID", mock.Anything, 42).Return(team, nil)
		m.memberRepo.On("Delete", mock.Anything, 42, 8).Return(repositories.ErrMemberNotFound)

		err := svc.RemoveMember(ctx, 42, 8, 7)

		assert.True(t, IsNotFound(err))
	})
}

func TestTeamService_TransferCaptaincy(t *testing.T) {
	ctx := context.Background()

	game := &models.Game{ID: 3, Name: "Counter-Strike 2", TeamSize: 5}

	t.Run("swaps captain reference and member roles", func(t *testing.T) {
		svc, m := newTestTeamService()

		team := &models.Team{ID: 42, Name: "Night Owls", GameID: 3, CaptainID: 7}
		m.teamRepo.On("GetByID", mock.Anything, 42).Return(team, nil)
		m.memberRepo.On("GetByTeamAndUser", mock.Anything, 42, 8).
			Return(&models.TeamMember{TeamID: 42, UserID: 8, Role: models.MemberRoleMember}, nil)

		m.teamRepo.On("UpdateCaptain", mock.Anything, mock.Anything, 42, 8).Return(nil)
		m.memberRepo.On("UpdateRole", mock.Anything, mock.Anything, 42, 7, models.MemberRoleMember).Return(nil)
		m.memberRepo.On("UpdateRole", mock.Anything, mock.Anything, 42, 8, models.MemberRoleCaptain).Return(nil)

		newCaptain := &models.User{ID: 8, DiscordUsername: "fresh_captain"}
		m.gameRepo.On("GetByID", mock.Anything, 3).Return(game, nil)
		m.userRepo.On("GetByID", mock.Anything, 7).Return(newCaptain, nil).Maybe()
		m.userRepo.On("GetByID", mock.Anything, 8).Return(newCaptain, nil).Maybe()
		m.memberRepo.On("ListByTeam", mock.Anything, 42).Return([]models.TeamMember{
			{TeamID: 42, UserID: 8, Role: models.MemberRoleCaptain},
			{TeamID: 42, UserID: 7, Role: models.MemberRoleMember},
		}, nil)
		m.participantRepo.On("ListByTeam", mock.Anything, 42).Return([]models.TournamentParticipant{}, nil)

		result, err := svc.TransferCaptaincy(ctx, 42, 8, 7)
		require.NoError(t, err)
		assert.Equal(t, models.MemberRoleCaptain, result.Members[0].Role)
		assert.Equal(t, 8, result.Members[0].UserID)
		m.teamRepo.AssertExpectations(t)
		m.memberRepo.AssertExpectations(t)
	})

	t.Run("only the current captain can transfer", func(t *testing.T) {
		svc, m := newTestTeamService()

		team := &models.Team{ID: 42, Name: "Night Owls", GameID: 3, CaptainID: 7}
		m.teamRepo.On("GetByID", mock.Anything, 42).Return(team, nil)

		_, err := svc.TransferCaptaincy(ctx, 42, 8, 8)

		var svcErr *Error
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, KindForbidden, svcErr.Kind)
		m.teamRepo.AssertNotCalled(t, "UpdateCaptain", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("new captain must already be a member", func(t *testing.T) {
		svc, m := newTestTeamService()

		team := &models.Team{ID: 42, Name: "Night Owls", GameID: 3, CaptainID: 7}
		m.teamRepo.On("GetByID", mock.Anything, 42).Return(team, nil)
		m.memberRepo.On("GetByTeamAndUser", mock.Anything, 42, 99).
			Return(nil, repositories.ErrMemberNotFound)

		_, err := svc.TransferCaptaincy(ctx, 42, 99, 7)

		assert.True(t, IsConflict(err))
		m.teamRepo.AssertNotCalled(t, "UpdateCaptain", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("role swap failure aborts the transfer", func(t *testing.T) {
		svc, m := newTestTeamService()

		team := &models.Team{ID: 42, Name: "Night Owls", GameID: 3, CaptainID: 7}
		m.teamRepo.On("GetByID", mock.Anything, 42).Return(team, nil)
		m.memberRepo.On("GetByTeamAndUser", mock.Anything, 42, 8).
			Return(&models.TeamMember{TeamID: 42, UserID: 8, Role: models.MemberRoleMember}, nil)
		m.teamRepo.On("UpdateCaptain", mock.Anything, mock.Anything, 42, 8).Return(nil)
		m.memberRepo.On("UpdateRole", mock.Anything, mock.Anything, 42, 7, models.MemberRoleMember).
			Return(errors.New("update failed"))

		_, err := svc.TransferCaptaincy(ctx, 42, 8, 7)

		require.Error(t, err)
		m.memberRepo.AssertNotCalled(t, "UpdateRole", mock.Anything, mock.Anything, 42, 8, models.MemberRoleCaptain)
	})
}

func TestTeamService_DeleteTeam(t *testing.T) {
	ctx := context.Background()

	team := &models.Team{ID: 42, Name: "Night Owls", GameID: 3, CaptainID: 7}

	t.Run("captain deletes an unregistered team", func(t *testing.T) {
		svc, m := newTestTeamService()

		m.teamRepo.On("GetByID", mock.Anything, 42).Return(team, nil)
		m.participantRepo.On("CountByTeam", mock.Anything, 42).Return(0, nil)
		m.teamRepo.On("Delete", mock.Anything, 42).Return(nil)

		err := svc.DeleteTeam(ctx, 42, 7)
		require.NoError(t, err)
		m.teamRepo.AssertExpectations(t)
	})

	t.Run("blocks deletion while tournament registrations exist", func(t *testing.T) {
		svc, m := newTestTeamService()

		m.teamRepo.On("GetByID", mock.Anything, 42).Return(team, nil)
		m.participantRepo.On("CountByTeam", mock.Anything, 42).Return(2, nil)

		err := svc.DeleteTeam(ctx, 42, 7)

		assert.True(t, IsConflict(err))
		m.teamRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("non-captain cannot delete", func(t *testing.T) {
		svc, m := newTestTeamService()

		m.teamRepo.On("GetByID", mock.Anything, 42).Return(team, nil)

		err := svc.DeleteTeam(ctx, 42, 8)

		var svcErr *Error
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, KindForbidden, svcErr.Kind)
	})
}

func TestTeamService_ListTeams(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes out-of-range paging values", func(t *testing.T) {
		svc, m := newTestTeamService()

		m.teamRepo.On("Count", mock.Anything, (*int)(nil)).Return(45, nil)
		m.teamRepo.On("List", mock.Anything, (*int)(nil), 0, 20).Return([]models.Team{}, nil)

		result, err := svc.ListTeams(ctx, nil, -3, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Pagination.Page)
		assert.Equal(t, 20, result.Pagination.Limit)
		assert.Equal(t, 45, result.Pagination.Total)
		assert.Equal(t, 3, result.Pagination.TotalPages)
	})

	t.Run("caps limit and filters by game", func(t *testing.T) {
		svc, m := newTestTeamService()

		gameID := 3
		m.teamRepo.On("Count", mock.Anything, &gameID).Return(1, nil)
		m.teamRepo.On("List", mock.Anything, &gameID, 0, maxTeamPageLimit).
			Return([]models.Team{{ID: 1, GameID: 3}}, nil)

		result, err := svc.ListTeams(ctx, &gameID, 1, 500)
		require.NoError(t, err)
		assert.Equal(t, maxTeamPageLimit, result.Pagination.Limit)
		assert.Len(t, result.Teams, 1)
	})
}

func TestTeamService_UpdateTeamDetails(t *testing.T) {
	ctx := context.Background()

	game := &models.Game{ID: 3, Name: "Counter-Strike 2", TeamSize: 5}
	captain := &models.User{ID: 7, DiscordUsername: "captain_jane"}

	t.Run("captain renames the team", func(t *testing.T) {
		svc, m := newTestTeamService()

		team := &models.Team{ID: 42, Name: "Night Owls", GameID: 3, CaptainID: 7}
		m.teamRepo.On("GetByID", mock.Anything, 42).Return(team, nil)
		m.teamRepo.On("Update", mock.Anything, mock.MatchedBy(func(updated *models.Team) bool {
			return updated.Name == "Day Owls"
		})).Return(nil)

		m.gameRepo.On("GetByID", mock.Anything, 3).Return(game, nil)
		m.userRepo.On("GetByID", mock.Anything, 7).Return(captain, nil)
		m.memberRepo.On("ListByTeam", mock.Anything, 42).Return([]models.TeamMember{}, nil)
		m.participantRepo.On("ListByTeam", mock.Anything, 42).Return([]models.TournamentParticipant{}, nil)

		name := "Day Owls"
		_, err := svc.UpdateTeamDetails(ctx, 42, UpdateTeamInput{Name: &name}, 7)
		require.NoError(t, err)
		m.teamRepo.AssertExpectations(t)
	})

	t.Run("rename colliding with another team maps to conflict", func(t *testing.T) {
		svc, m := newTestTeamService()

		team := &models.Team{ID: 42, Name: "Night Owls", GameID: 3, CaptainID: 7}
		m.teamRepo.On("GetByID", mock.Anything, 42).Return(team, nil)
		m.teamRepo.On("Update", mock.Anything, mock.Anything).Return(repositories.ErrTeamNameConflict)

		name := "Day Owls"
		_, err := svc.UpdateTeamDetails(ctx, 42, UpdateTeamInput{Name: &name}, 7)

		assert.True(t, IsConflict(err))
	})

	t.Run("non-captain cannot update", func(t *testing.T) {
		svc, m := newTestTeamService()

		team := &models.Team{ID: 42, Name: "Night Owls", GameID: 3, CaptainID: 7}
		m.teamRepo.On("GetByID", mock.Anything, 42).Return(team, nil)

		name := "Day Owls"
		_, err := svc.UpdateTeamDetails(ctx, 42, UpdateTeamInput{Name: &name}, 8)

		var svcErr *Error
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, KindForbidden, svcErr.Kind)
	})
}
