package services

import (
	"context"

	"volunteer-service/internal/logging"
)

const (
	unknownEvent        = "Unknown event"
	unknownUser         = "Unknown user"
	unknownOrganisation = "Unknown organisation"
)

// labelResolver turns ids into display names for one read. Lookups are cached
// for the lifetime of the resolver; a failed lookup yields a placeholder.
type labelResolver struct {
	ctx    context.Context
	events EventLookup
	orgs   OrgLookup
	users  UserLookup
	logger *logging.Logger

	eventTitles map[string]string
	eventOrgs   map[string]string
	orgNames    map[string]string
	userNames   map[string]string
}

func newLabelResolver(ctx context.Context, events EventLookup, orgs OrgLookup, users UserLookup, logger *logging.Logger) *labelResolver {
	return &labelResolver{
		ctx:         ctx,
		events:      events,
		orgs:        orgs,
		users:       users,
		logger:      logger,
		eventTitles: make(map[string]string),
		eventOrgs:   make(map[string]string),
		orgNames:    make(map[string]string),
		userNames:   make(map[string]string),
	}
}

func (r *labelResolver) loadEvent(id string) {
	if _, ok := r.eventTitles[id]; ok {
		return
	}
	e, err := r.events.GetEvent(r.ctx, id)
	if err != nil {
		r.logger.Debugf("Label lookup for event %s failed: %v", id, err)
		r.eventTitles[id] = unknownEvent
		r.eventOrgs[id] = ""
		return
	}
	r.eventTitles[id] = e.Title
	r.eventOrgs[id] = e.OrganisationID
}

func (r *labelResolver) eventTitle(id string) string {
	r.loadEvent(id)
	return r.eventTitles[id]
}

// eventOrganisationName names the organisation owning the event.
func (r *labelResolver) eventOrganisationName(eventID string) string {
	r.loadEvent(eventID)
	orgID := r.eventOrgs[eventID]
	if orgID == "" {
		return unknownOrganisation
	}
	return r.organisationName(orgID)
}

func (r *labelResolver) organisationName(id string) string {
	if name, ok := r.orgNames[id]; ok {
		return name
	}
	name := unknownOrganisation
	if o, err := r.orgs.GetOrganisation(r.ctx, id); err == nil {
		name = o.Name
	} else {
		r.logger.Debugf("Label lookup for organisation %s failed: %v", id, err)
	}
	r.orgNames[id] = name
	return name
}

func (r *labelResolver) userName(id string) string {
	if name, ok := r.userNames[id]; ok {
		return name
	}
	name := unknownUser
	if u, err := r.users.GetUser(r.ctx, id); err == nil {
		if dn := u.DisplayName(); dn != "" {
			name = dn
		}
	} else {
		r.logger.Debugf("Label lookup for user %s failed: %v", id, err)
	}
	r.userNames[id] = name
	return name
}
