// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev admin (admin@example.com) already exists.
package main

import (
	"context"
	"log"
	"time"

	admininvitedomain "tenant-admin-plane/internal/admininvite/domain"
	admininviterepo "tenant-admin-plane/internal/admininvite/repository"
	"tenant-admin-plane/internal/config"
	"tenant-admin-plane/internal/db"
	membershipdomain "tenant-admin-plane/internal/membership/domain"
	membershiprepo "tenant-admin-plane/internal/membership/repository"
	orgdomain "tenant-admin-plane/internal/organization/domain"
	organizationrepo "tenant-admin-plane/internal/organization/repository"
	userdomain "tenant-admin-plane/internal/user/domain"
	userrepo "tenant-admin-plane/internal/user/repository"
)

const (
	devAdminEmail     = "admin@example.com"
	devAdminID        = "dev-admin-001"
	devUserEmail      = "member@example.com"
	devUserID         = "dev-user-001"
	devOrgID          = "dev-org-001"
	devMembershipID   = "dev-membership-001"
	devInviteID       = "dev-invite-001"
	devAdminInviteID  = "dev-admin-invite-001"
	devInvitedEmail   = "invited@example.com"
	devPromotionEmail = "promote-me@example.com"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	users := userrepo.NewPostgresRepository(conn)
	orgs := organizationrepo.NewPostgresRepository(conn)
	memberships := membershiprepo.NewPostgresRepository(conn)
	adminInvites := admininviterepo.NewPostgresRepository(conn)

	existing, err := users.GetByEmail(ctx, devAdminEmail)
	if err != nil {
		log.Fatalf("seed: check dev admin: %v", err)
	}
	if existing != nil {
		log.Println("seed: dev data already present, skipping")
		return
	}

	now := time.Now().UTC()

	admin := &userdomain.User{
		ID: devAdminID, Email: devAdminEmail, Name: "Dev Admin",
		Role: userdomain.GlobalRoleSuperadmin, EmailVerified: &now,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := users.Create(ctx, admin); err != nil {
		log.Fatalf("seed: create admin: %v", err)
	}

	member := &userdomain.User{
		ID: devUserID, Email: devUserEmail, Name: "Dev Member",
		Role: userdomain.GlobalRoleMember, EmailVerified: &now,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := users.Create(ctx, member); err != nil {
		log.Fatalf("seed: create member: %v", err)
	}

	org := &orgdomain.Org{ID: devOrgID, Name: "Dev Organization", CreatedAt: now, UpdatedAt: now}
	if err := orgs.Create(ctx, org); err != nil {
		log.Fatalf("seed: create org: %v", err)
	}

	bound := &membershipdomain.Membership{
		ID: devMembershipID, OrgID: devOrgID, UserID: devUserID,
		Role: membershipdomain.RoleOwner, CreatedAt: now,
	}
	if err := memberships.Create(ctx, bound); err != nil {
		log.Fatalf("seed: create membership: %v", err)
	}

	pending := &membershipdomain.Membership{
		ID: devInviteID, OrgID: devOrgID,
		InvitedEmail: devInvitedEmail, InvitedName: "Invited Person",
		Role: membershipdomain.RoleMember, CreatedAt: now,
	}
	if err := memberships.Create(ctx, pending); err != nil {
		log.Fatalf("seed: create pending membership: %v", err)
	}

	invite := &admininvitedomain.AdminInvitation{
		ID: devAdminInviteID, InvitedEmail: devPromotionEmail, CreatedAt: now,
	}
	if err := adminInvites.Create(ctx, invite); err != nil {
		log.Fatalf("seed: create admin invitation: %v", err)
	}

	log.Println("seed: dev data inserted")
}
