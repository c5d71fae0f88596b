package services

import (
	"time"

	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/model/kernel"
)

// Audience is who receives a notification.
type Audience string

const (
	AudienceCustomer   Audience = "customer"
	AudienceDriver     Audience = "driver"
	AudienceDispatcher Audience = "dispatcher"
)

// Notification is a message to be delivered by some channel after a
// transition has been committed.
type Notification struct {
	DeliveryID   kernel.UUID
	TrackingCode delivery.TrackingCode
	Audience     Audience
	// RecipientID is the driver id for AudienceDriver; empty otherwise.
	RecipientID string
	Template    string
	From        delivery.Status
	To          delivery.Status
	OccurredAt  time.Time
}

type notificationRule struct {
	audience Audience
	template string
}

// NotificationPolicy maps target statuses to the notifications they produce.
// It decides only; publishing is done by a post-commit hook.
type NotificationPolicy struct {
	rules map[delivery.Status][]notificationRule
}

// DefaultNotificationPolicy returns the standard customer/driver/dispatcher fan-out.
func DefaultNotificationPolicy() NotificationPolicy {
	return NotificationPolicy{rules: map[delivery.Status][]notificationRule{
		delivery.StatusPending: {
			{AudienceDispatcher, "delivery.requeued"},
		},
		delivery.StatusAssigned: {
			{AudienceDriver, "delivery.assigned"},
			{AudienceCustomer, "delivery.driver_assigned"},
		},
		delivery.StatusPickedUp: {
			{AudienceCustomer, "delivery.picked_up"},
		},
		delivery.StatusOutForDelivery: {
			{AudienceCustomer, "delivery.out_for_delivery"},
		},
		delivery.StatusDelivered: {
			{AudienceCustomer, "delivery.delivered"},
			{AudienceDispatcher, "delivery.delivered"},
		},
		delivery.StatusFailed: {
			{AudienceCustomer, "delivery.attempt_failed"},
			{AudienceDispatcher, "delivery.attempt_failed"},
		},
		delivery.StatusCancelled: {
			{AudienceCustomer, "delivery.cancelled"},
			{AudienceDriver, "delivery.cancelled"},
		},
	}}
}

// NotificationsFor lists the notifications for an accepted transition of d.
// Same-status transitions produce nothing, except ASSIGNED -> ASSIGNED which
// is only persisted for a driver reassignment. Driver notifications are
// skipped when no driver is assigned.
func (p NotificationPolicy) NotificationsFor(d *delivery.Delivery, t delivery.Transition, at time.Time) []Notification {
	if (t.IsNoop() && t.To != delivery.StatusAssigned) || d.Validate() != nil {
		return nil
	}

	var out []Notification
	for _, rule := range p.rules[t.To] {
		n := Notification{
			DeliveryID:   d.ID(),
			TrackingCode: d.TrackingCode(),
			Audience:     rule.audience,
			Template:     rule.template,
			From:         t.From,
			To:           t.To,
			OccurredAt:   at.UTC(),
		}
		if rule.audience == AudienceDriver {
			if d.DriverID() == nil {
				continue
			}
			n.RecipientID = d.DriverID().String()
		}
		out = append(out, n)
	}
	return out
}
