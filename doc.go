// Package accounts implements a user account workflow: registration with
// email verification, credential login, profile management, and an
// admin-managed user listing.
//
// The package exposes command handlers (RegisterUserHandler,
// VerifyAccountHandler, UpdateProfileHandler, ChangePasswordHandler) backed
// by a RepositoryManager, a stateless authorization gate (Authorize), and an
// HTTP controller that wires the workflow to go-router routes. See cmd/server
// for a runnable application.
package accounts
