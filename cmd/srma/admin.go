package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/tecem/srma/internal/auth"
	"github.com/tecem/srma/internal/domain"
)

func (a *app) runAdmin(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("admin: missing subcommand")
	}
	sub, rest := args[0], args[1:]

	switch sub {
	case "login":
		var user, password string
		fs := pflag.NewFlagSet("admin login", pflag.ContinueOnError)
		fs.StringVarP(&user, "user", "u", "", "administrator user")
		fs.StringVarP(&password, "password", "p", "", "administrator password")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if err := a.auth.AdminLogin(ctx, user, password); err != nil {
			if errors.Is(err, auth.ErrBadCredentials) {
				return errors.New("credenciales de administrador incorrectas")
			}
			return err
		}
		fmt.Fprintln(a.out, "Acceso de administrador concedido.")
		return nil
	case "logout":
		return a.auth.AdminLogout(ctx)
	}

	if err := a.auth.RequireAdmin(ctx); err != nil {
		return err
	}

	switch sub {
	case "users":
		users, err := a.admin.List(ctx)
		if err != nil {
			return fmt.Errorf("error al listar usuarios: %w", err)
		}
		renderUsers(a.out, users)
		return nil

	case "status":
		if len(rest) != 1 {
			return errors.New("usage: admin status ID")
		}
		current, err := a.findUser(ctx, rest[0])
		if err != nil {
			return err
		}
		active, err := a.admin.ToggleStatus(ctx, current.ID, current.Active)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Estado de %s actualizado a %s.\n", current.ID, domain.StatusCode(active))
		return nil

	case "role":
		if len(rest) != 2 {
			return errors.New("usage: admin role ID ROLE")
		}
		role, err := parseRoleArg(rest[1])
		if err != nil {
			return err
		}
		if err := a.admin.AssignRole(ctx, rest[0], role); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Rol de %s actualizado a %s.\n", rest[0], role)
		return nil

	case "delete":
		if len(rest) != 1 {
			return errors.New("usage: admin delete ID")
		}
		if err := a.admin.Delete(ctx, rest[0]); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Usuario %s eliminado.\n", rest[0])
		return nil

	default:
		return fmt.Errorf("admin: unknown subcommand %q", sub)
	}
}

func (a *app) findUser(ctx context.Context, id string) (domain.ManagedUser, error) {
	users, err := a.admin.List(ctx)
	if err != nil {
		return domain.ManagedUser{}, err
	}
	for _, u := range users {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.ManagedUser{}, fmt.Errorf("user %s not found", id)
}

// parseRoleArg accepts a role name ("professional") or its backend code ("2").
func parseRoleArg(arg string) (domain.Role, error) {
	arg = strings.ToLower(strings.TrimSpace(arg))
	role := domain.ParseRole(arg)
	if role == domain.RoleGuest {
		role = domain.RoleFromCode(arg)
	}
	if role.Assignable() {
		return role, nil
	}
	valid := make([]string, 0, len(domain.Roles()))
	for _, r := range domain.Roles() {
		code, _ := r.Code()
		valid = append(valid, fmt.Sprintf("%s (%s)", r, code))
	}
	return "", fmt.Errorf("rol %q no válido; use uno de: %s", arg, strings.Join(valid, ", "))
}
