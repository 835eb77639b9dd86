package businessflow

import (
	"context"
	"testing"

	"github.com/redline-telecom/redline/app/dto"
	"github.com/redline-telecom/redline/config"
	"github.com/redline-telecom/redline/models"
	"github.com/redline-telecom/redline/repository"
	testhelpers "github.com/redline-telecom/redline/testing"
	"github.com/redline-telecom/redline/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flowTestEnv wires the reservation and demand flows against a disposable
// Postgres database. Tests using it skip when no test database is reachable.
type flowTestEnv struct {
	db              *testhelpers.TestDB
	fixtures        *testhelpers.TestFixtures
	reservationFlow ReservationFlow
	requestFlow     LineRequestFlow
}

func setupFlowTest(t *testing.T) *flowTestEnv {
	t.Helper()

	testDB, err := testhelpers.SetupTestDB()
	if err != nil {
		t.Skipf("test database not available: %v", err)
	}
	t.Cleanup(func() {
		if err := testDB.TeardownTestDB(); err != nil {
			t.Logf("failed to teardown test database: %v", err)
		}
	})

	accountRepo := repository.NewRedAccountRepository(testDB.DB)
	lineRepo := repository.NewLineRepository(testDB.DB)
	requestRepo := repository.NewLineRequestRepository(testDB.DB)
	userRepo := repository.NewUserRepository(testDB.DB)
	auditRepo := repository.NewAuditLogRepository(testDB.DB)

	cacheConfig := &config.CacheConfig{}

	return &flowTestEnv{
		db:       testDB,
		fixtures: testhelpers.NewTestFixtures(testDB),
		reservationFlow: NewReservationFlow(
			accountRepo, lineRepo, requestRepo, userRepo, auditRepo,
			nil, cacheConfig, testDB.DB,
		),
		requestFlow: NewLineRequestFlow(
			requestRepo, accountRepo, userRepo, auditRepo, testDB.DB,
		),
	}
}

func (env *flowTestEnv) setActiveLines(t *testing.T, accountID uint, count int) {
	t.Helper()
	err := env.db.DB.Model(&models.RedAccount{}).
		Where("id = ?", accountID).
		Update("active_lines", count).Error
	require.NoError(t, err)
}

func TestReserveExistingLineRequestIdempotence(t *testing.T) {
	env := setupFlowTest(t)
	ctx := context.Background()

	agency, err := env.fixtures.CreateTestAgency()
	require.NoError(t, err)
	client, err := env.fixtures.CreateTestUser(models.RoleAgency, &agency.ID)
	require.NoError(t, err)
	account, err := env.fixtures.CreateTestRedAccount(agency.ID, 2)
	require.NoError(t, err)
	request, err := env.fixtures.CreateTestLineRequest(client.ID, agency.ID, 0)
	require.NoError(t, err)

	payload := &dto.ReserveExistingRequest{
		LineRequestID: request.ID,
		RedAccountID:  account.ID,
	}

	resp, err := env.reservationFlow.ReserveExistingLineRequest(ctx, payload, nil)
	require.NoError(t, err)
	assert.Equal(t, models.PhoneStatusReservedNewLine.String(), resp.Line.PhoneStatus)
	assert.Equal(t, 1, resp.Account.ReservedLines)
	require.NotNil(t, resp.LineRequest)
	assert.Equal(t, models.RequestStatusFulfilled.String(), resp.LineRequest.Status)

	// Second promotion of the same demand must refuse, not reserve again
	_, err = env.reservationFlow.ReserveExistingLineRequest(ctx, payload, nil)
	require.Error(t, err)
	assert.True(t, IsAlreadyReserved(err))

	refreshed, err := repository.NewRedAccountRepository(env.db.DB).ByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed.ReservedLines)
}

func TestCancelReservationReleasesSlot(t *testing.T) {
	env := setupFlowTest(t)
	ctx := context.Background()

	agency, err := env.fixtures.CreateTestAgency()
	require.NoError(t, err)
	client, err := env.fixtures.CreateTestUser(models.RoleAgency, &agency.ID)
	require.NoError(t, err)
	account, err := env.fixtures.CreateTestRedAccount(agency.ID, 1)
	require.NoError(t, err)

	resp, err := env.reservationFlow.ReserveLine(ctx, &dto.ReserveLineRequest{
		RedAccountID: account.ID,
		ClientID:     client.ID,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Account.ReservedLines)
	assert.Equal(t, 0, resp.Account.AvailableSlots)

	cancelled, err := env.reservationFlow.CancelReservation(ctx, resp.Line.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.PhoneStatusNeedsToBeOrdered.String(), cancelled.Line.PhoneStatus)
	assert.False(t, utils.IsTrue(cancelled.Line.HasActiveReservation))
	assert.Equal(t, 0, cancelled.Account.ReservedLines)
	assert.Equal(t, 1, cancelled.Account.AvailableSlots)

	// The freed slot is usable again
	_, err = env.reservationFlow.ReserveLine(ctx, &dto.ReserveLineRequest{
		RedAccountID: account.ID,
		ClientID:     client.ID,
	}, nil)
	require.NoError(t, err)
}

func TestReserveLineOnFullAccount(t *testing.T) {
	env := setupFlowTest(t)
	ctx := context.Background()

	agency, err := env.fixtures.CreateTestAgency()
	require.NoError(t, err)
	client, err := env.fixtures.CreateTestUser(models.RoleAgency, &agency.ID)
	require.NoError(t, err)

	t.Run("fails when nothing can be reclaimed", func(t *testing.T) {
		account, err := env.fixtures.CreateTestRedAccount(agency.ID, 1)
		require.NoError(t, err)
		_, err = env.fixtures.CreateTestLine(account.ID, agency.ID, models.PhoneStatusActive)
		require.NoError(t, err)
		env.setActiveLines(t, account.ID, 1)

		_, err = env.reservationFlow.ReserveLine(ctx, &dto.ReserveLineRequest{
			RedAccountID: account.ID,
			ClientID:     client.ID,
		}, nil)
		require.Error(t, err)
		assert.True(t, IsCapacityExceeded(err))
	})

	t.Run("reclaims a terminated line past its holding period", func(t *testing.T) {
		account, err := env.fixtures.CreateTestRedAccount(agency.ID, 1)
		require.NoError(t, err)
		terminated, err := env.fixtures.CreateTestLine(account.ID, agency.ID, models.PhoneStatusTerminated)
		require.NoError(t, err)
		env.setActiveLines(t, account.ID, 1)

		resp, err := env.reservationFlow.ReserveLine(ctx, &dto.ReserveLineRequest{
			RedAccountID: account.ID,
			ClientID:     client.ID,
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, terminated.ID, resp.Line.ID)
		assert.Equal(t, models.PhoneStatusReservedExistingLine.String(), resp.Line.PhoneStatus)
	})
}

func TestListClientsToOrderScopedToAgency(t *testing.T) {
	env := setupFlowTest(t)
	ctx := context.Background()

	agencyA, err := env.fixtures.CreateTestAgency()
	require.NoError(t, err)
	agencyB, err := env.fixtures.CreateTestAgency()
	require.NoError(t, err)

	clientA, err := env.fixtures.CreateTestUser(models.RoleAgency, &agencyA.ID)
	require.NoError(t, err)
	clientB, err := env.fixtures.CreateTestUser(models.RoleAgency, &agencyB.ID)
	require.NoError(t, err)

	requestA, err := env.fixtures.CreateTestLineRequest(clientA.ID, agencyA.ID, 0)
	require.NoError(t, err)
	_, err = env.fixtures.CreateTestLineRequest(clientB.ID, agencyB.ID, 0)
	require.NoError(t, err)

	result, err := env.requestFlow.ListClientsToOrder(ctx, agencyA.ID)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, requestA.ID, result.Items[0].ID)
	assert.Equal(t, agencyA.ID, result.Items[0].AgencyID)
}

func TestCreateLineRequestDerivesAgencyFromClient(t *testing.T) {
	env := setupFlowTest(t)
	ctx := context.Background()

	agencyA, err := env.fixtures.CreateTestAgency()
	require.NoError(t, err)
	agencyB, err := env.fixtures.CreateTestAgency()
	require.NoError(t, err)

	client, err := env.fixtures.CreateTestUser(models.RoleAgency, &agencyA.ID)
	require.NoError(t, err)
	foreignAccount, err := env.fixtures.CreateTestRedAccount(agencyB.ID, 5)
	require.NoError(t, err)

	t.Run("account from another agency is rejected", func(t *testing.T) {
		_, err := env.requestFlow.CreateLineRequest(ctx, &dto.CreateLineRequestRequest{
			ClientID:     client.ID,
			RedAccountID: &foreignAccount.ID,
		}, nil)
		require.Error(t, err)
		assert.True(t, IsRedAccountNotFound(err))
	})

	t.Run("agency comes from the client, not the payload", func(t *testing.T) {
		created, err := env.requestFlow.CreateLineRequest(ctx, &dto.CreateLineRequestRequest{
			ClientID: client.ID,
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, agencyA.ID, created.AgencyID)
		assert.Equal(t, models.RequestStatusPending.String(), created.Status)
	})

	t.Run("client without an agency scope is rejected", func(t *testing.T) {
		supervisor, err := env.fixtures.CreateTestUser(models.RoleSupervisor, nil)
		require.NoError(t, err)

		_, err = env.requestFlow.CreateLineRequest(ctx, &dto.CreateLineRequestRequest{
			ClientID: supervisor.ID,
		}, nil)
		require.Error(t, err)
		assert.True(t, IsClientNotFound(err))
	})
}
