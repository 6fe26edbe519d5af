package state

import (
	"context"

	"myshop/internal/apperr"
	"myshop/internal/models"
	"myshop/internal/resource"
	"myshop/internal/session"
)

type ProfileRepository interface {
	RetrieveProfile(ctx context.Context, sess *session.Session) resource.Result[models.UserProfile]
	UpdateProfile(ctx context.Context, sess *session.Session, p models.UserProfile) resource.Result[resource.Unit]
	Logout(sess *session.Session)
}

// ProfileController binds a profile slot to one session. The profile is
// fetched as soon as the controller is created.
type ProfileController struct {
	repo   ProfileRepository
	sess   *session.Session
	holder *Holder[models.UserProfile]
}

func NewProfileController(ctx context.Context, repo ProfileRepository, sess *session.Session) *ProfileController {
	c := &ProfileController{repo: repo, sess: sess}
	c.holder = NewHolder(ctx, func(ctx context.Context) resource.Result[models.UserProfile] {
		return repo.RetrieveProfile(ctx, sess)
	})
	return c
}

func (c *ProfileController) State() resource.Result[models.UserProfile] {
	return c.holder.Current()
}

func (c *ProfileController) Load(ctx context.Context) resource.Result[models.UserProfile] {
	return c.holder.Load(ctx)
}

func (c *ProfileController) Retry(ctx context.Context) resource.Result[models.UserProfile] {
	return c.holder.Retry(ctx)
}

// Update writes p and then re-reads the stored profile.
func (c *ProfileController) Update(ctx context.Context, p models.UserProfile) resource.Result[models.UserProfile] {
	return c.holder.Update(ctx, func(ctx context.Context) resource.Result[resource.Unit] {
		return c.repo.UpdateProfile(ctx, c.sess, p)
	})
}

// SignOut logs the session out and parks the slot on ErrLoggedOut, which the
// presentation layer renders through its ordinary failure path.
func (c *ProfileController) SignOut() {
	c.repo.Logout(c.sess)
	c.holder.Set(resource.Failure[models.UserProfile](apperr.ErrLoggedOut))
}

func (c *ProfileController) Await(ctx context.Context) (resource.Result[models.UserProfile], error) {
	return c.holder.Await(ctx)
}

func (c *ProfileController) Subscribe() (<-chan resource.Result[models.UserProfile], func()) {
	return c.holder.Subscribe()
}

func (c *ProfileController) Close() {
	c.holder.Close()
}
