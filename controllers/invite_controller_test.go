package controller_test

import (
	"fmt"
	"net/http"
	"testing"

	"taskhive/models"
)

// The invite flow works against email addresses, not user records: an
// invite to an address that has never registered is valid, and becomes
// acceptable once the address signs up.
func TestInviteLifecycleWithUnregisteredEmail(t *testing.T) {
	app, db := setupTestApp(t)

	aliceToken := registerUser(t, app, "Alice", "alice@example.com", "password123")
	orgID := createOrganisation(t, app, aliceToken, "Acme")

	status, body := doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/v1/organisations/%d/invites", orgID), aliceToken,
		map[string]string{"email": "bob@example.com"})
	if status != http.StatusCreated {
		t.Fatalf("expected 201 inviting an unregistered address, got %d (%v)", status, body)
	}

	bobToken := registerUser(t, app, "Bob", "bob@example.com", "password123")

	status, _ = doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/v1/organisations/%d/invites/accept", orgID), bobToken, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 accepting invite, got %d", status)
	}

	var membership models.Membership
	err := db.Where("organisation_id = ?", orgID).
		Where("role = ?", models.RoleMember).First(&membership).Error
	if err != nil {
		t.Fatalf("expected bob's membership to exist: %v", err)
	}

	// A second acceptance must not create a second membership.
	status, _ = doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/v1/organisations/%d/invites/accept", orgID), bobToken, nil)
	if status != http.StatusConflict {
		t.Fatalf("expected 409 on repeated acceptance, got %d", status)
	}

	var count int64
	db.Model(&models.Membership{}).Where("organisation_id = ?", orgID).Count(&count)
	if count != 2 { // alice (owner) + bob (member)
		t.Fatalf("expected 2 memberships, got %d", count)
	}

	var invite models.Invite
	if err := db.Where("organisation_id = ?", orgID).First(&invite).Error; err != nil {
		t.Fatalf("invite row should remain as history: %v", err)
	}
	if !invite.Accepted {
		t.Fatalf("invite should stay accepted")
	}
}

func TestDuplicatePendingInviteConflicts(t *testing.T) {
	app, db := setupTestApp(t)

	aliceToken := registerUser(t, app, "Alice", "alice@example.com", "password123")
	orgID := createOrganisation(t, app, aliceToken, "Acme")

	invite := func() int {
		status, _ := doRequest(t, app, http.MethodPost,
			fmt.Sprintf("/api/v1/organisations/%d/invites", orgID), aliceToken,
			map[string]string{"email": "bob@example.com"})
		return status
	}

	if status := invite(); status != http.StatusCreated {
		t.Fatalf("expected 201 on first invite, got %d", status)
	}
	if status := invite(); status != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate pending invite, got %d", status)
	}

	var count int64
	db.Model(&models.Invite{}).Where("organisation_id = ?", orgID).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly 1 invite row, got %d", count)
	}
}

func TestInviteRequiresAdminOrOwner(t *testing.T) {
	app, _ := setupTestApp(t)

	aliceToken := registerUser(t, app, "Alice", "alice@example.com", "password123")
	bobToken := registerUser(t, app, "Bob", "bob@example.com", "password123")
	carolToken := registerUser(t, app, "Carol", "carol@example.com", "password123")
	orgID := createOrganisation(t, app, aliceToken, "Acme")

	// Outsiders are rejected before the role check.
	status, _ := doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/v1/organisations/%d/invites", orgID), carolToken,
		map[string]string{"email": "dave@example.com"})
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for outsider invite, got %d", status)
	}

	// Plain members may not invite, unlike direct add.
	doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/v1/organisations/%d/members", orgID), aliceToken,
		map[string]string{"email": "bob@example.com"})
	status, _ = doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/v1/organisations/%d/invites", orgID), bobToken,
		map[string]string{"email": "dave@example.com"})
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for member invite, got %d", status)
	}

	// Once promoted to admin, bob may invite.
	doRequest(t, app, http.MethodPatch,
		fmt.Sprintf("/api/v1/organisations/%d/members/role", orgID), aliceToken,
		map[string]string{"email": "bob@example.com", "role": models.RoleAdmin})
	status, _ = doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/v1/organisations/%d/invites", orgID), bobToken,
		map[string]string{"email": "dave@example.com"})
	if status != http.StatusCreated {
		t.Fatalf("expected 201 for admin invite, got %d", status)
	}
}

func TestInviteRejectsMalformedEmail(t *testing.T) {
	app, _ := setupTestApp(t)

	aliceToken := registerUser(t, app, "Alice", "alice@example.com", "password123")
	orgID := createOrganisation(t, app, aliceToken, "Acme")

	status, _ := doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/v1/organisations/%d/invites", orgID), aliceToken,
		map[string]string{"email": "not-an-address"})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed invite email, got %d", status)
	}
}

func TestAcceptWithoutInvite(t *testing.T) {
	app, _ := setupTestApp(t)

	aliceToken := registerUser(t, app, "Alice", "alice@example.com", "password123")
	bobToken := registerUser(t, app, "Bob", "bob@example.com", "password123")
	orgID := createOrganisation(t, app, aliceToken, "Acme")

	status, _ := doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/v1/organisations/%d/invites/accept", orgID), bobToken, nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 accepting without an invite, got %d", status)
	}
}

func TestAcceptWhenAlreadyMember(t *testing.T) {
	app, _ := setupTestApp(t)

	aliceToken := registerUser(t, app, "Alice", "alice@example.com", "password123")
	bobToken := registerUser(t, app, "Bob", "bob@example.com", "password123")
	orgID := createOrganisation(t, app, aliceToken, "Acme")

	doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/v1/organisations/%d/invites", orgID), aliceToken,
		map[string]string{"email": "bob@example.com"})

	// Bob gets added directly while his invite is still pending.
	doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/v1/organisations/%d/members", orgID), aliceToken,
		map[string]string{"email": "bob@example.com"})

	status, _ := doRequest(t, app, http.MethodPost,
		fmt.Sprintf("/api/v1/organisations/%d/invites/accept", orgID), bobToken, nil)
	if status != http.StatusConflict {
		t.Fatalf("expected 409 accepting as an existing member, got %d", status)
	}
}
