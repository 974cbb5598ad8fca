package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	rostermodels "mercato/internal/roster/models"
	rosterservice "mercato/internal/roster/service"
	"mercato/internal/store/memory"
	"mercato/internal/valuation"
	"mercato/pkg/testutil"
)

type RosterHandlerSuite struct {
	suite.Suite
	router chi.Router
}

func TestRosterHandlerSuite(t *testing.T) {
	suite.Run(t, new(RosterHandlerSuite))
}

func (s *RosterHandlerSuite) SetupTest() {
	db := memory.NewDB()
	svc, err := rosterservice.New(
		memory.NewPlayerStore(db),
		memory.NewClubStore(db),
		memory.NewContractStore(db),
		memory.NewTransferStore(db),
		valuation.New(),
	)
	s.Require().NoError(err)

	s.router = chi.NewRouter()
	New(svc, nil).Register(s.router)
}

func (s *RosterHandlerSuite) registerPlayer() map[string]any {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/players", map[string]any{
		"name":         "Jude",
		"birth_date":   time.Date(2004, time.September, 15, 0, 0, 0, 0, time.UTC),
		"nationality":  "England",
		"position":     rostermodels.CentralMidfield,
		"market_value": 5_000_000,
	})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	return *testutil.UnmarshalResponse[map[string]any](s.T(), rr)
}

func (s *RosterHandlerSuite) TestRegisterPlayer() {
	s.Run("valid player is created", func() {
		player := s.registerPlayer()
		s.Equal("Jude", player["name"])
		s.NotEmpty(player["id"])
	})

	s.Run("empty name conflicts with the model invariant", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/players", map[string]any{
			"name":       "",
			"birth_date": time.Date(2004, time.September, 15, 0, 0, 0, 0, time.UTC),
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "invariant_violation")
	})

	s.Run("malformed body is a bad request", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/players", "{not json")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}

func (s *RosterHandlerSuite) TestGetPlayer() {
	player := s.registerPlayer()
	playerID := player["id"].(string)

	s.Run("existing player round-trips", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/players/"+playerID))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "name", "Jude")
	})

	s.Run("unknown id is not found", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/players/550e8400-e29b-41d4-a716-446655440000"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("malformed id is a bad request", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/players/not-a-uuid"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}

func (s *RosterHandlerSuite) TestUpdateStats() {
	player := s.registerPlayer()
	playerID := player["id"].(string)

	s.Run("stats are persisted", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/players/"+playerID+"/stats", rostermodels.Stats{
			Appearances: 40, Goals: 12, Assists: 9, InternationalCaps: 30,
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)

		updated := testutil.UnmarshalResponse[rostermodels.Player](s.T(), rr)
		s.Equal(40, updated.Stats.Appearances)
	})

	s.Run("negative stats are rejected", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/players/"+playerID+"/stats", rostermodels.Stats{
			Appearances: -1,
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation")
	})
}

func (s *RosterHandlerSuite) TestValue() {
	player := s.registerPlayer()
	playerID := player["id"].(string)

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/players/"+playerID+"/value"))
	testutil.AssertStatusOK(s.T(), rr)

	valuationResp := testutil.UnmarshalResponse[rosterservice.Valuation](s.T(), rr)
	s.Equal(int64(5_000_000), valuationResp.CurrentValue)
	s.Positive(valuationResp.ComputedValue)
	// valuation is computed, never persisted
	get := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/players/"+playerID))
	testutil.AssertJSONContains(s.T(), get, "market_value", float64(5_000_000))
}

func (s *RosterHandlerSuite) TestClubs() {
	s.Run("register and fetch a club", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/clubs", map[string]any{
			"name":   "Rovers",
			"budget": 10_000_000,
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		club := testutil.UnmarshalResponse[rostermodels.Club](s.T(), rr)

		get := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/clubs/"+club.ID.String()))
		testutil.AssertStatusOK(s.T(), get)
		testutil.AssertJSONContains(s.T(), get, "budget", float64(10_000_000))
	})

	s.Run("negative budget conflicts", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/clubs", map[string]any{
			"name":   "Rovers",
			"budget": -1,
		})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "invariant_violation")
	})
}
