package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/thisismugil/edutech/core"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
	ErrInvalidOTP  = errors.New("invalid or expired OTP")

	errMissingEducatorFields = errors.New("missing educator profile fields")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []User, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		UpdateOrCreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)

		CreateEducatorProfile(ctx context.Context, prof EducatorProfile, exec ...core.DBExecutor) (EducatorProfile, error)
		GetEducatorProfile(ctx context.Context, userID string, exec ...core.DBExecutor) (EducatorProfile, error)
	}

	ServiceInterface interface {
		CheckEmailUniqueness(email string, exclUsers ...User) error
		Register(ctx context.Context, nu NewUser) (User, error)
		Authenticate(ctx context.Context, email, pwd string) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		Update(ctx context.Context, id string, uu UpdateUser) (User, error)
		Delete(ctx context.Context, ids ...string) error
		RequestOTP(ctx context.Context, req OTPRequest) error
		ResetPassword(ctx context.Context, rp ResetUserPassword) error
		GetEducatorProfile(ctx context.Context, userID string) (EducatorProfile, error)
	}

	Service struct {
		db      core.DB
		repo    Repository
		otp     OTPStore
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ ServiceInterface = (*Service)(nil) // interface compliance check

func NewService(db core.DB, repo Repository, otp OTPStore, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		db:      db,
		repo:    repo,
		otp:     otp,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *Service) CheckEmailUniqueness(email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, exclUsers); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Register creates the User and, for educators, their EducatorProfile in one transaction.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      nu.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	usr.SetActive(true)
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}

	if svc.db == nil {
		// in-mem setups have no transactions
		return svc.register(ctx, usr, nu)
	}

	tx, err := svc.db.BeginTx(ctx, nil)
	if err != nil {
		return User{}, errors.Wrap(err, "beginning transaction")
	}
	usr, err = svc.register(ctx, usr, nu, tx)
	if err != nil {
		_ = tx.Rollback()
		return User{}, err
	}
	if err = tx.Commit(); err != nil {
		return User{}, errors.Wrap(err, "committing transaction")
	}
	return usr, nil
}

func (svc *Service) register(ctx context.Context, usr User, nu NewUser, exec ...core.DBExecutor) (User, error) {
	usr, err := svc.repo.CreateUser(ctx, usr, exec...)
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}
	if usr.IsEducator() {
		now := time.Now().UTC()
		prof := EducatorProfile{
			UserID:          usr.ID,
			ExperienceYears: nu.ExperienceYears,
			Institution:     core.CleanString(nu.Institution),
			Qualification:   core.CleanString(nu.Qualification),
			Bio:             core.CleanString(nu.Bio),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if _, err = svc.repo.CreateEducatorProfile(ctx, prof, exec...); err != nil {
			return User{}, errors.Wrap(err, "creating educator profile")
		}
	}
	return usr, nil
}

func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
	if err != nil {
		return User{}, err
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrNotFound
	}
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr := User{
		ID:        id,
		Name:      uu.Name,
		Email:     uu.Email,
		Role:      uu.Role,
		IsActive:  uu.IsActive,
		UpdatedAt: time.Now().UTC(),
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteUsersByID(ctx, ids)
	return err
}

// RequestOTP stores a fresh one-time code for the email and mails it.
// Purpose signup requires the email to be free; purpose reset requires an account.
func (svc *Service) RequestOTP(ctx context.Context, req OTPRequest) error {
	_, err := svc.repo.GetUser(ctx, GetFilter{Email: req.Email})
	switch req.Purpose {
	case OTPPurposeSignup:
		if err == nil {
			return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
		if err != ErrNotFound {
			return errors.Wrap(err, "finding user by email")
		}
	case OTPPurposeReset:
		if err != nil {
			return err
		}
	}

	code, err := GenerateOTP(svc.conf.OTPLength)
	if err != nil {
		return errors.Wrap(err, "generating OTP")
	}
	if err = svc.otp.SaveOTP(ctx, req.Email, code, svc.conf.OTPTimeout); err != nil {
		return errors.Wrap(err, "saving OTP")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: req.Email}},
		Subject: "Your Verification Code",
		BodyStr: fmt.Sprintf("Your verification code is: %s. It is valid for %v.", code, svc.conf.OTPTimeout),
	})
	return nil
}

// ResetPassword verifies and consumes the one-time code, then rehashes the password.
func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	ok, err := svc.otp.CheckOTP(ctx, rp.Email, rp.OTP)
	if err != nil {
		return errors.Wrap(err, "checking OTP")
	}
	if !ok {
		return core.NewValidationError(ErrInvalidOTP, core.FieldError{Field: "otp", Error: ErrInvalidOTP.Error()})
	}

	usr, err := svc.repo.GetUser(ctx, GetFilter{Email: rp.Email})
	if err != nil {
		return err
	}
	if err = usr.SetPassword(rp.NewPassword); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	if _, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return errors.Wrap(err, "updating user")
	}
	if err = svc.otp.DeleteOTP(ctx, rp.Email); err != nil {
		return errors.Wrap(err, "deleting OTP")
	}
	return nil
}

func (svc *Service) GetEducatorProfile(ctx context.Context, userID string) (EducatorProfile, error) {
	return svc.repo.GetEducatorProfile(ctx, userID)
}
