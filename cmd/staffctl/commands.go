package main

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/college-staff-api/internal/models"
	"github.com/noah-isme/college-staff-api/internal/repository"
	"github.com/noah-isme/college-staff-api/internal/service"
)

const demoPassword = "Demo@123456"

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for a password",
		Args:  cobra.ExactArgs(1),
		// The hash needs no config or database.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := service.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

type demoAccount struct {
	email      string
	name       string
	role       models.UserRole
	department string
	slots      []models.TimetableSlot
}

func demoAccounts() []demoAccount {
	course := func(name, day string, hour int) models.TimetableSlot {
		return models.TimetableSlot{
			CourseName: name,
			DayOfWeek:  day,
			StartTime:  models.NewTimeOfDay(hour, 0, 0),
			EndTime:    models.NewTimeOfDay(hour+1, 0, 0),
		}
	}
	return []demoAccount{
		{email: "admin@college.edu", name: "Department Admin", role: models.RoleAdmin},
		{email: "staff1@college.edu", name: "Asha Raman", role: models.RoleStaff, department: "Computer Science", slots: []models.TimetableSlot{
			course("Data Structures", "Monday", 9),
			course("Operating Systems", "Monday", 14),
			course("Data Structures", "Wednesday", 11),
		}},
		{email: "staff2@college.edu", name: "Bala Krishnan", role: models.RoleStaff, department: "Computer Science", slots: []models.TimetableSlot{
			course("Discrete Mathematics", "Tuesday", 10),
		}},
	}
}

func newSeedCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-demo",
		Short: "Create demo accounts, staff records and timetable slots",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := e.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			users := repository.NewUserRepository(db)
			staff := repository.NewStaffRepository(db)
			timetables := repository.NewTimetableRepository(db)

			hash, err := service.HashPassword(demoPassword)
			if err != nil {
				return err
			}

			for _, acct := range demoAccounts() {
				if _, err := users.FindByEmail(ctx, acct.email); err == nil {
					e.logger.Info("demo account exists", zap.String("email", acct.email))
					continue
				} else if !errors.Is(err, sql.ErrNoRows) {
					return err
				}

				tx, err := db.BeginTxx(ctx, nil)
				if err != nil {
					return err
				}
				user := &models.User{Email: acct.email, PasswordHash: hash, FullName: acct.name, Role: acct.role, Active: true}
				if err := users.Create(ctx, tx, user); err != nil {
					_ = tx.Rollback()
					return err
				}
				var member *models.Staff
				if acct.role == models.RoleStaff {
					dept := acct.department
					member = &models.Staff{UserID: user.ID, Name: acct.name, Email: acct.email, Department: &dept, Active: true}
					if err := staff.Create(ctx, tx, member); err != nil {
						_ = tx.Rollback()
						return err
					}
				}
				if err := tx.Commit(); err != nil {
					return err
				}

				for _, slot := range acct.slots {
					slot.StaffID = member.ID
					if err := timetables.Create(ctx, &slot); err != nil {
						return err
					}
				}
				e.logger.Info("demo account created", zap.String("email", acct.email), zap.String("role", string(acct.role)))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "demo accounts ready, password %s\n", demoPassword)
			return nil
		},
	}
}

func newTOTPCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "totp-enroll <email>",
		Short: "Enable two-factor login for an account and print the provisioning URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := e.openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			users := repository.NewUserRepository(db)
			user, err := users.FindByEmail(ctx, args[0])
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("no account for %s", args[0])
				}
				return err
			}
			auth := service.NewAuthService(users, repository.NewStaffRepository(db), repository.NewActivityRepository(db), nil, e.logger, service.AuthConfig{
				AccessTokenSecret: e.cfg.JWT.Secret,
				Issuer:            e.cfg.JWT.Issuer,
				TOTPIssuer:        e.cfg.Auth.TOTPIssuer,
			})
			enrollment, err := auth.EnrollTOTP(ctx, user.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), enrollment.URL)
			return nil
		},
	}
}
