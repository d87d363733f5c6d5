package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tonimelisma/amee-go/internal/api"
	"github.com/tonimelisma/amee-go/internal/drill"
)

// timestampLayouts are the forms the service uses for created/modified.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
}

// Create requests ask for the full representation so the response
// carries the new item's uid.
const (
	representationParam = "representation"
	representationFull  = "full"
)

// Sender issues one request and returns the decoded JSON body. It is
// satisfied by *api.Client.
type Sender interface {
	Send(ctx context.Context, verb, path string, params url.Values) (json.RawMessage, error)
}

// Values are the user-supplied fields of a profile item, e.g.
// {"distance": "1000"}.
type Values map[string]string

func (v Values) encode() url.Values {
	q := url.Values{}
	for k, val := range v {
		q.Set(k, val)
	}

	return q
}

// profileResponse mirrors a profile object in service JSON.
// Unexported: callers use Profile via toProfile.
type profileResponse struct {
	UID      string `json:"uid"`
	Created  string `json:"created"`
	Modified string `json:"modified"`
}

type profileEnvelope struct {
	Profile *profileResponse `json:"profile"`
}

type profilesEnvelope struct {
	Profiles []profileResponse `json:"profiles"`
}

// itemResponse mirrors a profileItem object in service JSON.
type itemResponse struct {
	UID      string `json:"uid"`
	Name     string `json:"name"`
	Created  string `json:"created"`
	Modified string `json:"modified"`
	DataItem *struct {
		UID string `json:"uid"`
	} `json:"dataItem"`
	Amount *struct {
		Value float64 `json:"value"`
		Unit  string  `json:"unit"`
	} `json:"amount"`
}

type itemEnvelope struct {
	ProfileItem *itemResponse `json:"profileItem"`
}

type itemsEnvelope struct {
	ProfileItems []itemResponse `json:"profileItems"`
}

func (p *profileResponse) toProfile(logger *slog.Logger) *Profile {
	return NewProfile(Meta{
		ID:         p.UID,
		CreatedAt:  parseTimestamp(p.Created, "created", p.UID, logger),
		ModifiedAt: parseTimestamp(p.Modified, "modified", p.UID, logger),
	})
}

func (r *itemResponse) toItem(categoryPath string, logger *slog.Logger) Item {
	item := Item{
		Meta: Meta{
			ID:         r.UID,
			CreatedAt:  parseTimestamp(r.Created, "created", r.UID, logger),
			ModifiedAt: parseTimestamp(r.Modified, "modified", r.UID, logger),
		},
		Name:         r.Name,
		CategoryPath: categoryPath,
	}

	if r.DataItem != nil {
		item.DataItemUID = r.DataItem.UID
	}

	if r.Amount != nil {
		item.Amount = r.Amount.Value
		item.Unit = r.Amount.Unit
	}

	return item
}

// parseTimestamp parses a service timestamp. Empty or invalid values give
// the zero time and, when invalid, a warning; a bad timestamp never fails
// the surrounding call.
func parseTimestamp(raw, field, id string, logger *slog.Logger) time.Time {
	if raw == "" {
		return time.Time{}
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}

	logger.Warn("invalid timestamp, leaving unset",
		slog.String("field", field),
		slog.String("id", id),
		slog.String("raw", raw),
	)

	return time.Time{}
}

// Service performs profile and item operations against the service.
type Service struct {
	sender   Sender
	resolver *drill.Resolver
	logger   *slog.Logger
}

// NewService creates a Service. resolver is used by CreateItemFromDrill
// and may be nil when that operation is not needed.
func NewService(sender Sender, resolver *drill.Resolver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{sender: sender, resolver: resolver, logger: logger}
}

// CreateProfile creates a new, empty profile.
func (s *Service) CreateProfile(ctx context.Context) (*Profile, error) {
	raw, err := s.sender.Send(ctx, http.MethodPost, "/profiles", url.Values{"profile": {"true"}})
	if err != nil {
		return nil, err
	}

	var env profileEnvelope
	if err := api.Decode(raw, &env); err != nil {
		return nil, err
	}

	if env.Profile == nil || env.Profile.UID == "" {
		return nil, fmt.Errorf("creating profile: %w: response has no profile uid", api.ErrRequest)
	}

	p := env.Profile.toProfile(s.logger)

	s.logger.Info("created profile", slog.String("profile_id", p.ID))

	return p, nil
}

// ListProfiles returns every profile visible to the configured project.
func (s *Service) ListProfiles(ctx context.Context) ([]*Profile, error) {
	raw, err := s.sender.Send(ctx, http.MethodGet, "/profiles", nil)
	if err != nil {
		return nil, err
	}

	var env profilesEnvelope
	if err := api.Decode(raw, &env); err != nil {
		return nil, err
	}

	profiles := make([]*Profile, 0, len(env.Profiles))
	for i := range env.Profiles {
		profiles = append(profiles, env.Profiles[i].toProfile(s.logger))
	}

	s.logger.Debug("listed profiles", slog.Int("count", len(profiles)))

	return profiles, nil
}

// ListItems fetches the items of p under categoryPath and registers them
// with p.
func (s *Service) ListItems(ctx context.Context, p *Profile, categoryPath string) ([]Item, error) {
	path, err := categoryURL(p, categoryPath)
	if err != nil {
		return nil, err
	}

	raw, err := s.sender.Send(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var env itemsEnvelope
	if err := api.Decode(raw, &env); err != nil {
		return nil, err
	}

	category := drill.CleanPath(categoryPath)
	items := make([]Item, 0, len(env.ProfileItems))

	for i := range env.ProfileItems {
		item := env.ProfileItems[i].toItem(category, s.logger)
		if err := p.Items().Register(item); err != nil {
			s.logger.Warn("skipping item without uid", slog.String("profile_id", p.ID))
			continue
		}

		items = append(items, item)
	}

	return items, nil
}

// CreateItem creates an item in p from the category item dataItemUID and
// registers it with p.
func (s *Service) CreateItem(
	ctx context.Context,
	p *Profile,
	categoryPath, dataItemUID string,
	values Values,
) (Item, error) {
	if dataItemUID == "" {
		return Item{}, fmt.Errorf("creating item: data item %w", ErrUninitialized)
	}

	path, err := categoryURL(p, categoryPath)
	if err != nil {
		return Item{}, err
	}

	params := values.encode()
	params.Set("dataItemUid", dataItemUID)
	params.Set(representationParam, representationFull)

	raw, err := s.sender.Send(ctx, http.MethodPost, path, params)
	if err != nil {
		return Item{}, err
	}

	item, err := s.decodeItem(raw, drill.CleanPath(categoryPath))
	if err != nil {
		return Item{}, err
	}

	// The write went through; without a uid the item cannot be addressed.
	if item.ID == "" {
		s.logger.Warn("created profile item without uid in response",
			slog.String("profile_id", p.ID),
			slog.String("category", item.CategoryPath),
		)

		return Item{}, &api.RequestError{
			Verb:    http.MethodPost,
			Path:    path,
			Message: "item created but response named no uid",
			Err:     ErrNoUID,
		}
	}

	if item.DataItemUID == "" {
		item.DataItemUID = dataItemUID
	}

	if err := p.Items().Register(item); err != nil {
		return Item{}, err
	}

	s.logger.Info("created profile item",
		slog.String("profile_id", p.ID),
		slog.String("item_id", item.ID),
		slog.String("category", item.CategoryPath),
	)

	return item, nil
}

// CreateItemFromDrill resolves the category item for opts with the drill
// resolver and creates an item from it. Options that do not determine a
// single category item fail with drill.ErrAmbiguous before any write.
func (s *Service) CreateItemFromDrill(
	ctx context.Context,
	p *Profile,
	categoryPath string,
	opts drill.Options,
	values Values,
) (Item, error) {
	if _, err := p.RequireID(); err != nil {
		return Item{}, err
	}

	if s.resolver == nil {
		return Item{}, fmt.Errorf("creating item: no drill resolver configured")
	}

	uid, err := s.resolver.ResolveUID(ctx, categoryPath, opts)
	if err != nil {
		return Item{}, err
	}

	return s.CreateItem(ctx, p, categoryPath, uid, values)
}

// UpdateItem sends values for an existing item and re-registers the
// returned state.
func (s *Service) UpdateItem(ctx context.Context, p *Profile, item Item, values Values) (Item, error) {
	path, err := itemURL(p, item)
	if err != nil {
		return Item{}, err
	}

	raw, err := s.sender.Send(ctx, http.MethodPut, path, values.encode())
	if err != nil {
		return Item{}, err
	}

	updated, err := s.decodeItem(raw, item.CategoryPath)
	if err != nil {
		return Item{}, err
	}

	// The service may answer with an empty body; keep what we know,
	// preferring the registered copy over a caller's sparse item.
	if updated.ID == "" {
		updated = item
		if known, ok := p.Items().Get(item.ID); ok {
			updated = known
		}
	}

	if updated.DataItemUID == "" {
		updated.DataItemUID = item.DataItemUID
	}

	if err := p.Items().Register(updated); err != nil {
		return Item{}, err
	}

	s.logger.Info("updated profile item",
		slog.String("profile_id", p.ID),
		slog.String("item_id", updated.ID),
	)

	return updated, nil
}

// DeleteItem deletes item from p and unregisters it.
func (s *Service) DeleteItem(ctx context.Context, p *Profile, item Item) error {
	path, err := itemURL(p, item)
	if err != nil {
		return err
	}

	if _, err := s.sender.Send(ctx, http.MethodDelete, path, nil); err != nil {
		return err
	}

	p.Items().Unregister(item.ID)

	s.logger.Info("deleted profile item",
		slog.String("profile_id", p.ID),
		slog.String("item_id", item.ID),
	)

	return nil
}

// decodeItem decodes a profileItem envelope. A null body yields the zero
// Item.
func (s *Service) decodeItem(raw json.RawMessage, categoryPath string) (Item, error) {
	var env itemEnvelope
	if err := api.Decode(raw, &env); err != nil {
		return Item{}, err
	}

	if env.ProfileItem == nil {
		return Item{CategoryPath: categoryPath}, nil
	}

	return env.ProfileItem.toItem(categoryPath, s.logger), nil
}

// categoryURL returns /profiles/{id}{category}.
func categoryURL(p *Profile, categoryPath string) (string, error) {
	if p == nil {
		return "", ErrUninitialized
	}

	id, err := p.RequireID()
	if err != nil {
		return "", fmt.Errorf("profile: %w", err)
	}

	return "/profiles/" + id + drill.CleanPath(categoryPath), nil
}

// itemURL returns /profiles/{id}{category}/{itemID}.
func itemURL(p *Profile, item Item) (string, error) {
	base, err := categoryURL(p, item.CategoryPath)
	if err != nil {
		return "", err
	}

	itemID, err := item.RequireID()
	if err != nil {
		return "", fmt.Errorf("item: %w", err)
	}

	if item.CategoryPath == "" {
		return "", fmt.Errorf("item %s: category path %w", itemID, ErrUninitialized)
	}

	return base + "/" + itemID, nil
}
