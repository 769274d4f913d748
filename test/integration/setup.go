package integration

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vncsmyrnk/univote/internal/adapters/audit"
	handler "github.com/vncsmyrnk/univote/internal/adapters/handler/http"
	repo "github.com/vncsmyrnk/univote/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/univote/internal/adapters/sealer"
	"github.com/vncsmyrnk/univote/internal/core/domain"
	"github.com/vncsmyrnk/univote/internal/core/services"
)

var testSecret = []byte("test-secret")

type TestApp struct {
	Server     *httptest.Server
	Client     *http.Client
	DB         *sql.DB
	Audit      *audit.Dispatcher
	Container  testcontainers.Container
	SealingKey []byte
}

func (app *TestApp) Teardown(t *testing.T) {
	t.Helper()
	app.Server.Close()
	_ = app.Audit.Close(context.Background())
	app.DB.Close()
	if err := app.Container.Terminate(context.Background()); err != nil {
		t.Logf("failed to terminate postgres container: %v", err)
	}
}

func setupPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	pgContainer, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}

	return pgContainer, connStr, nil
}

func setupTestApp(t *testing.T) *TestApp {
	t.Helper()

	ctx := context.Background()
	container, connStr, err := setupPostgresContainer(ctx)
	require.NoError(t, err)

	db, err := repo.Open(ctx, connStr)
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(ctx, db))

	key := make([]byte, 32)
	_, err = rand.Read(key)
	require.NoError(t, err)
	ballotSealer, err := sealer.NewAEAD(key)
	require.NoError(t, err)

	clock := services.SystemClock()
	ledger := repo.NewLedger(db)
	elections := repo.NewElectionRepository(db)
	voters := repo.NewVoterRepository(db)
	tallies := repo.NewTallyRepository(db)
	auditRepo := repo.NewAuditRepository(db)
	dispatcher := audit.NewDispatcher(auditRepo, 64, nil)

	electionSvc := services.NewElectionService(elections, ledger, tallies, clock)
	voterSvc := services.NewVoterService(voters, ledger, 4)
	voteSvc := services.NewVoteService(services.VoteDependencies{
		Elections:   elections,
		Ledger:      ledger,
		Eligibility: ledger,
		Sealer:      ballotSealer,
		Audit:       dispatcher,
		Clock:       clock,
	})
	tallySvc := services.NewTallyService(services.TallyDependencies{
		Elections: elections,
		Ledger:    ledger,
		Voters:    voters,
		Results:   tallies,
		Sealer:    ballotSealer,
		Clock:     clock,
	})

	router := handler.NewHandler(handler.Handlers{
		Elections: handler.NewElectionHandler(electionSvc, ledger, dispatcher, clock),
		Votes:     handler.NewVoteHandler(voteSvc, clock),
		Results:   handler.NewResultsHandler(tallySvc, electionSvc, dispatcher, clock),
		Voters:    handler.NewVoterHandler(voterSvc, dispatcher, clock),
		Audit:     handler.NewAuditHandler(auditRepo),
	}, handler.RouterConfig{JWTSecret: testSecret})

	server := httptest.NewServer(router)

	return &TestApp{
		Server:     server,
		Client:     server.Client(),
		DB:         db,
		Audit:      dispatcher,
		Container:  container,
		SealingKey: key,
	}
}

func createToken(t *testing.T, userID string, role domain.Role) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"exp":  time.Now().Add(15 * time.Minute).Unix(),
		"iat":  time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return signedToken
}
