package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flicky/go-storefront-api/internal/dto"
	"github.com/flicky/go-storefront-api/internal/repository"
	"github.com/flicky/go-storefront-api/internal/service"
)

var adminUser dto.SignupRequest

// createAdminCmd is the only way to obtain an administrator; signup always
// creates regular customers.
var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account",
	Long: `Create a user that may manage the catalog and see every order.

Examples:
  api create-admin --email ops@example.com --password 'changeme!' --fname Ops --lname Team --phone 5550100`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(adminUser.Password) < 8 {
			return fmt.Errorf("password must be at least 8 characters")
		}
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		pool, err := connectDB(cmd.Context(), cfg.DB)
		if err != nil {
			return err
		}
		defer pool.Close()

		auth := service.NewAuthService(repository.NewStore(pool).Users(), cfg.JWT.Secret, cfg.JWT.Expiration)
		user, err := auth.RegisterAdmin(cmd.Context(), adminUser)
		if err != nil {
			return fmt.Errorf("create admin: %w", err)
		}
		log.Info("administrator created", zap.String("user_id", user.ID.String()), zap.String("email", user.Email))
		return nil
	},
}

func init() {
	flags := createAdminCmd.Flags()
	flags.StringVar(&adminUser.Email, "email", "", "Login email")
	flags.StringVar(&adminUser.Password, "password", "", "Password, at least 8 characters")
	flags.StringVar(&adminUser.FirstName, "fname", "Admin", "First name")
	flags.StringVar(&adminUser.LastName, "lname", "User", "Last name")
	flags.StringVar(&adminUser.PhoneNumber, "phone", "", "Phone number")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(createAdminCmd)
}
