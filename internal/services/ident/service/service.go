// Package service provides the ident resolver
package service

import (
	"context"
	"strings"
	"sync"

	perr "sentinel/internal/platform/errors"
	"sentinel/internal/platform/logger"
	"sentinel/internal/services/ident/domain"
)

// Resolver resolves people against a directory loaded exactly once
// construct one per run and share it between adapters
type Resolver struct {
	loader domain.Loader

	once sync.Once
	dir  domain.Directory
	err  error
}

var _ domain.Resolver = (*Resolver)(nil)

// New constructs the resolver; the directory is read on first use
func New(loader domain.Loader) *Resolver {
	if loader == nil {
		panic("ident.Resolver requires a non nil Loader")
	}
	return &Resolver{loader: loader}
}

// Warm loads the directory now so later concurrent readers never race the first load
func (r *Resolver) Warm(ctx context.Context) error {
	_, err := r.directory(ctx)
	return err
}

// directory runs the single load and returns its outcome to every caller
func (r *Resolver) directory(ctx context.Context) (domain.Directory, error) {
	r.once.Do(func() {
		dir, err := r.loader.Load(ctx)
		if err != nil {
			r.err = perr.Wrap(err, perr.ErrorCodeDirectory, "ident: directory load failed")
			logger.C(ctx).Error().Err(err).Msg("ident: directory load failed")
			return
		}
		r.dir = dir
		logger.C(ctx).Info().Int("contacts", len(dir)).Msg("ident: directory loaded")
	})
	return r.dir, r.err
}

// ByEmail returns the contact name and organization for email
// Email echoes the input; Name is empty when nobody matches
func (r *Resolver) ByEmail(ctx context.Context, email string) (domain.Identity, error) {
	dir, err := r.directory(ctx)
	if err != nil {
		return domain.Identity{}, err
	}
	email = strings.TrimSpace(email)
	c, ok := dir.ByEmail(email)
	return domain.Identity{
		Name:         domain.Known(c.Name),
		Email:        email,
		Organization: domain.OrganizationOf(c, ok, email),
	}, nil
}

// ByName returns the contact email and organization for a display name
// Name echoes the input; Email is empty when nobody matches
func (r *Resolver) ByName(ctx context.Context, name string) (domain.Identity, error) {
	dir, err := r.directory(ctx)
	if err != nil {
		return domain.Identity{}, err
	}
	name = strings.TrimSpace(name)
	c, ok := dir.ByName(name)
	email := domain.Known(c.Email)
	return domain.Identity{
		Name:         name,
		Email:        email,
		Organization: domain.OrganizationOf(c, ok, email),
	}, nil
}
