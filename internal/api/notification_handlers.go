package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/agencynet/agencynet-server/internal/api/dto"
	"github.com/agencynet/agencynet-server/internal/domain"
	domainerrors "github.com/agencynet/agencynet-server/internal/errors"
	"github.com/agencynet/agencynet-server/internal/sse"
)

func (s *Server) registerNotificationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listNotifications",
		Method:      http.MethodGet,
		Path:        "/api/v1/notifications",
		Summary:     "List my notifications",
		Description: "Returns the caller's notifications, newest first",
		Tags:        []string{"Notifications"},
		Security:    bearerAuth,
	}, s.handleListNotifications)
}

func (s *Server) handleListNotifications(ctx context.Context, input *dto.ListNotificationsInput) (*dto.ListOutput[*domain.Notification], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	notifications, err := s.services.Notifier.List(ctx, userID, input.Limit)
	if err != nil {
		return nil, s.apiError(ctx, err)
	}

	return &dto.ListOutput[*domain.Notification]{Body: dto.NewListResponse(notifications)}, nil
}

// registerChangeStreamRoutes mounts the SSE change feed directly on the router;
// it streams instead of returning a huma body.
func (s *Server) registerChangeStreamRoutes() {
	if s.sseManager == nil {
		return
	}
	handler := sse.NewHandler(s.sseManager, s.resolveSubscription, s.logger)
	s.router.Method(http.MethodGet, "/api/v1/changes/stream", handler)
}

// resolveSubscription scopes a change feed to the caller.
// ?tables= narrows the feed; ?agency= selects an agency the caller owns.
// Without it, owners follow their own agency and everyone else only sees
// rows addressed to them.
func (s *Server) resolveSubscription(r *http.Request) (sse.Subscription, error) {
	ctx := r.Context()

	userID, err := GetUserID(ctx)
	if err != nil {
		return sse.Subscription{}, err
	}

	tables, err := sse.ParseTables(r.URL.Query().Get("tables"))
	if err != nil {
		return sse.Subscription{}, domainerrors.Validation(err.Error())
	}

	agencyID := r.URL.Query().Get("agency")
	if agencyID != "" {
		if _, err := s.services.Agency.AuthorizeOwner(ctx, agencyID, userID); err != nil {
			return sse.Subscription{}, err
		}
	} else {
		agencyID, err = s.services.Agency.OwnedAgencyID(ctx, userID)
		if err != nil && !errors.Is(err, domainerrors.ErrNotFound) {
			return sse.Subscription{}, err
		}
	}

	return sse.Subscription{
		Tables:   tables,
		AgencyID: agencyID,
		UserID:   userID,
	}, nil
}
