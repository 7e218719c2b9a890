// Package subscriptions implements signup, preference management and lookup
// for alert subscribers.
package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/quebec-alerts/alerts-api/internal/models"
	"github.com/quebec-alerts/alerts-api/internal/repository/sqlite"
	"github.com/quebec-alerts/alerts-api/internal/services/schedule"
	"github.com/quebec-alerts/alerts-api/internal/services/waste"
)

const dateLayout = "2006-01-02"

var (
	ErrNoAlertsEnabled = errors.New("at least one alert type must be enabled")
	ErrPostalCode      = errors.New("postal code could not be located")

	// ErrNotFound is the storage sentinel, re-exported so handlers do not
	// reach into the repository package.
	ErrNotFound = sqlite.ErrSubscriberNotFound
)

type subscriberRepository interface {
	Create(ctx context.Context, sub models.Subscriber) (int64, error)
	GetByEmail(ctx context.Context, email string) (models.Subscriber, error)
	UpdatePreferences(ctx context.Context, email string, upd models.PreferencesUpdate) (bool, error)
	Remove(ctx context.Context, email string) (bool, error)
}

type zoneGetter interface {
	GetByID(ctx context.Context, id int64) (models.WasteZone, error)
}

type scheduleResolver interface {
	Get(ctx context.Context, zoneCode string, forceRefresh bool) (models.WasteZone, error)
}

type geocoder interface {
	Geocode(ctx context.Context, postalCode string) (models.Location, error)
}

type snowChecker interface {
	CheckPostalCode(ctx context.Context, postalCode string) (bool, []string, error)
}

type welcomeEmailer interface {
	SendWelcome(to, postalCode string) error
}

// Service wires subscriber storage to geocoding, schedule resolution and the
// welcome email.
type Service struct {
	repo      subscriberRepository
	zones     zoneGetter
	schedules scheduleResolver
	geocoder  geocoder
	snow      snowChecker
	emailer   welcomeEmailer
	logger    *log.Logger
	now       func() time.Time
}

func NewService(
	repo subscriberRepository,
	zones zoneGetter,
	schedules scheduleResolver,
	geocoder geocoder,
	snow snowChecker,
	emailer welcomeEmailer,
	logger *log.Logger,
	now func() time.Time,
) *Service {
	return &Service{
		repo:      repo,
		zones:     zones,
		schedules: schedules,
		geocoder:  geocoder,
		snow:      snow,
		emailer:   emailer,
		logger:    logger,
		now:       now,
	}
}

// SubscribeResult reports what Subscribe did and the resolved zone, if any.
type SubscribeResult struct {
	Subscriber models.Subscriber
	Created    bool
	Zone       *models.WasteZone
}

// Subscribe creates a subscriber or, when the email already exists, replaces
// its preferences and location. Schedule resolution failures are tolerated:
// the subscription succeeds without a zone and the next sweep skips waste
// reminders for it.
func (s *Service) Subscribe(ctx context.Context, req models.SubscriptionRequest) (SubscribeResult, error) {
	prefs := req.Prefs()
	if !prefs.Any() {
		return SubscribeResult{}, ErrNoAlertsEnabled
	}

	email := models.NormalizeEmail(req.Email)
	postalCode := models.NormalizePostalCode(req.PostalCode)

	location, err := s.geocoder.Geocode(ctx, postalCode)
	if err != nil {
		return SubscribeResult{}, fmt.Errorf("%w: %w", ErrPostalCode, err)
	}

	zone := s.resolveZone(ctx, postalCode, prefs.GarbageAlerts || prefs.RecyclingAlerts)

	var zoneID *int64
	if zone != nil {
		zoneID = &zone.ID
	}

	_, err = s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return s.resubscribe(ctx, email, postalCode, location, prefs, zoneID, zone)
	case errors.Is(err, ErrNotFound):
	default:
		return SubscribeResult{}, err
	}

	sub := models.Subscriber{
		Email:           email,
		PostalCode:      postalCode,
		Lat:             location.Lat,
		Lon:             location.Lon,
		Active:          true,
		SnowAlerts:      prefs.SnowAlerts,
		GarbageAlerts:   prefs.GarbageAlerts,
		RecyclingAlerts: prefs.RecyclingAlerts,
		WasteZoneID:     zoneID,
	}

	id, err := s.repo.Create(ctx, sub)
	if err != nil {
		return SubscribeResult{}, err
	}
	sub.ID = id

	if err := s.emailer.SendWelcome(email, postalCode); err != nil {
		s.logger.Printf("welcome email to %s failed: %v", email, err)
	}

	return SubscribeResult{Subscriber: sub, Created: true, Zone: zone}, nil
}

func (s *Service) resubscribe(
	ctx context.Context,
	email, postalCode string,
	location models.Location,
	prefs models.Preferences,
	zoneID *int64,
	zone *models.WasteZone,
) (SubscribeResult, error) {
	upd := models.PreferencesUpdate{
		SnowAlerts:      &prefs.SnowAlerts,
		GarbageAlerts:   &prefs.GarbageAlerts,
		RecyclingAlerts: &prefs.RecyclingAlerts,
		PostalCode:      &postalCode,
		Lat:             &location.Lat,
		Lon:             &location.Lon,
		WasteZoneID:     zoneID,
	}

	ok, err := s.repo.UpdatePreferences(ctx, email, upd)
	if err != nil {
		return SubscribeResult{}, err
	}
	if !ok {
		return SubscribeResult{}, ErrNotFound
	}

	sub, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return SubscribeResult{}, err
	}
	return SubscribeResult{Subscriber: sub, Zone: zone}, nil
}

// UpdatePreferences merges a partial update into an existing subscription.
// When the update turns on a waste alert for a subscriber without a zone, the
// schedule is resolved lazily here.
func (s *Service) UpdatePreferences(
	ctx context.Context,
	email string,
	upd models.PreferencesUpdate,
) (models.Subscriber, *models.WasteZone, error) {
	email = models.NormalizeEmail(email)

	sub, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return models.Subscriber{}, nil, err
	}

	merged := sub
	upd.Apply(&merged)
	if !merged.HasAnyAlert() {
		return models.Subscriber{}, nil, ErrNoAlertsEnabled
	}

	var zone *models.WasteZone
	if upd.WantsWasteAlerts(sub) && sub.WasteZoneID == nil && upd.WasteZoneID == nil {
		zone = s.resolveZone(ctx, merged.PostalCode, true)
		if zone != nil {
			upd.WasteZoneID = &zone.ID
		}
	}

	ok, err := s.repo.UpdatePreferences(ctx, email, upd)
	if err != nil {
		return models.Subscriber{}, nil, err
	}
	if !ok {
		return models.Subscriber{}, nil, ErrNotFound
	}

	sub, err = s.repo.GetByEmail(ctx, email)
	if err != nil {
		return models.Subscriber{}, nil, err
	}
	if zone == nil {
		zone = s.linkedZone(ctx, sub)
	}
	return sub, zone, nil
}

// GetSubscriber returns a subscription and its linked zone.
func (s *Service) GetSubscriber(ctx context.Context, email string) (models.Subscriber, *models.WasteZone, error) {
	sub, err := s.repo.GetByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		return models.Subscriber{}, nil, err
	}
	return sub, s.linkedZone(ctx, sub), nil
}

// Unsubscribe removes the subscription entirely. Returns false when the email
// is unknown.
func (s *Service) Unsubscribe(ctx context.Context, email string) (bool, error) {
	return s.repo.Remove(ctx, models.NormalizeEmail(email))
}

// NextEvents lists the next snow, garbage and recycling dates for a postal
// code. Fields stay nil when there is nothing scheduled or no data.
type NextEvents struct {
	SnowRemoval *string `json:"snow_removal"`
	Garbage     *string `json:"garbage"`
	Recycling   *string `json:"recycling"`
}

// BuildNextEvents assembles the next_events block for API responses. Snow
// check failures leave the snow field nil rather than failing the request.
func (s *Service) BuildNextEvents(ctx context.Context, postalCode string, zone *models.WasteZone) NextEvents {
	var events NextEvents

	active, _, err := s.snow.CheckPostalCode(ctx, postalCode)
	if err != nil {
		s.logger.Printf("snow check for %s failed: %v", postalCode, err)
	} else if active {
		today := s.now().Format(dateLayout)
		events.SnowRemoval = &today
	}

	if zone != nil {
		dates := waste.NextCollectionDates(*zone, s.now())
		if dates.Garbage != nil {
			g := dates.Garbage.Format(dateLayout)
			events.Garbage = &g
		}
		if dates.Recycling != nil {
			r := dates.Recycling.Format(dateLayout)
			events.Recycling = &r
		}
	}
	return events
}

// resolveZone fetches the schedule for a postal code when waste alerts call
// for it. Never fails the caller; unresolved schedules come back nil.
func (s *Service) resolveZone(ctx context.Context, postalCode string, wanted bool) *models.WasteZone {
	if !wanted {
		return nil
	}

	zone, err := s.schedules.Get(ctx, postalCode, false)
	if errors.Is(err, schedule.ErrUnavailable) {
		s.logger.Printf("schedule for %s unavailable, subscribing without zone: %v", postalCode, err)
		return nil
	}
	if err != nil {
		s.logger.Printf("resolving schedule for %s: %v", postalCode, err)
		return nil
	}
	return &zone
}

func (s *Service) linkedZone(ctx context.Context, sub models.Subscriber) *models.WasteZone {
	if sub.WasteZoneID == nil {
		return nil
	}
	zone, err := s.zones.GetByID(ctx, *sub.WasteZoneID)
	if err != nil {
		s.logger.Printf("loading zone %d for %s: %v", *sub.WasteZoneID, sub.Email, err)
		return nil
	}
	return &zone
}
