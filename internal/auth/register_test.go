package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercaura/mercaura-backend/internal/users"
	"github.com/mercaura/mercaura-backend/pkg/config"
	pkgmodels "github.com/mercaura/mercaura-backend/pkg/db/models"
	"github.com/mercaura/mercaura-backend/pkg/enums"
	pkgerrors "github.com/mercaura/mercaura-backend/pkg/errors"
	"github.com/mercaura/mercaura-backend/pkg/security"
)

type stubTxRunner struct{}

func (s stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubRegisterUserRepo struct {
	data    map[string]*pkgmodels.User
	created *pkgmodels.User
}

func newStubRegisterUserRepo() *stubRegisterUserRepo {
	return &stubRegisterUserRepo{data: map[string]*pkgmodels.User{}}
}

func (s *stubRegisterUserRepo) FindByEmail(ctx context.Context, email string) (*pkgmodels.User, error) {
	if user, ok := s.data[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRegisterUserRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*pkgmodels.User, error) {
	user := dto.ToModel()
	user.ID = uuid.New()
	s.data[dto.Email] = user
	s.created = user
	return user, nil
}

func newRegisterTestService(t *testing.T) (RegisterService, *stubRegisterUserRepo) {
	t.Helper()
	userRepo := newStubRegisterUserRepo()
	svc, err := NewRegisterService(RegisterServiceParams{
		TxRunner: stubTxRunner{},
		UserRepoFactory: func(tx *gorm.DB) registerUserRepository {
			return userRepo
		},
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("build register service: %v", err)
	}
	return svc, userRepo
}

func TestRegisterCreatesCustomer(t *testing.T) {
	svc, repo := newRegisterTestService(t)

	dto, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Avery",
		LastName:  "Quinn",
		Email:     "  Shopper@Example.com ",
		Password:  "long-enough-password",
		Role:      "customer",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if dto.Email != "shopper@example.com" {
		t.Fatalf("expected normalized email, got %s", dto.Email)
	}
	if dto.Role != enums.MemberRoleCustomer {
		t.Fatalf("expected customer role, got %s", dto.Role)
	}
	if repo.created == nil {
		t.Fatalf("expected user row to be created")
	}
	if repo.created.PasswordHash == "long-enough-password" {
		t.Fatalf("password must be stored hashed")
	}
	valid, err := security.VerifyPassword("long-enough-password", repo.created.PasswordHash)
	if err != nil || !valid {
		t.Fatalf("stored hash does not verify: %v", err)
	}
}

func TestRegisterVendorRole(t *testing.T) {
	svc, repo := newRegisterTestService(t)

	dto, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Rowan",
		LastName:  "Teal",
		Email:     "stall@example.com",
		Password:  "long-enough-password",
		Role:      "vendor",
	})
	if err != nil {
		t.Fatalf("register vendor: %v", err)
	}
	if dto.Role != enums.MemberRoleVendor {
		t.Fatalf("expected vendor role, got %s", dto.Role)
	}
	if repo.created.Role != enums.MemberRoleVendor {
		t.Fatalf("expected vendor role persisted, got %s", repo.created.Role)
	}
}

func TestRegisterRejectsAdminRole(t *testing.T) {
	svc, _ := newRegisterTestService(t)

	_, err := svc.Register(context.Background(), RegisterRequest{
		FirstName: "Sly",
		LastName:  "Root",
		Email:     "root@example.com",
		Password:  "long-enough-password",
		Role:      "admin",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for admin role, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newRegisterTestService(t)

	req := RegisterRequest{
		FirstName: "Avery",
		LastName:  "Quinn",
		Email:     "shopper@example.com",
		Password:  "long-enough-password",
		Role:      "customer",
	}
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := svc.Register(context.Background(), req)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}
}
