package services

import (
	"reflect"
	"sort"
	"time"
)

// AuditAction names the kind of change made to an entity.
type AuditAction string

const (
	AuditActionCreate       AuditAction = "create"
	AuditActionStatusChange AuditAction = "status_change"
	AuditActionAssign       AuditAction = "assign"
	AuditActionCancel       AuditAction = "cancel"
	AuditActionEstimate     AuditAction = "estimate"
)

// FieldChange is the old and new value of one field.
type FieldChange struct {
	Old any
	New any
}

// EntityChange describes a write the application layer is about to commit.
type EntityChange struct {
	Entity    string
	EntityID  string
	Action    AuditAction
	Actor     string
	Automatic bool
	Fields    map[string]FieldChange
	At        time.Time
}

// AuditedField is a changed field kept in an AuditRecord.
type AuditedField struct {
	Name string
	Old  any
	New  any
}

// AuditRecord is what gets written to the audit trail.
type AuditRecord struct {
	Entity    string
	EntityID  string
	Action    AuditAction
	Actor     string
	Automatic bool
	Fields    []AuditedField
	At        time.Time
}

// AuditPolicy decides whether and what to audit for an entity change.
// Callers invoke it explicitly on the write path.
type AuditPolicy struct {
	actions map[string]map[AuditAction]struct{}
	omitted map[string]struct{}
}

// DefaultAuditPolicy audits every delivery write except derived estimate
// refreshes, and never records the optimistic version column.
func DefaultAuditPolicy() AuditPolicy {
	return NewAuditPolicy(
		map[string][]AuditAction{
			"delivery": {AuditActionCreate, AuditActionStatusChange, AuditActionAssign, AuditActionCancel},
		},
		[]string{"version"},
	)
}

// NewAuditPolicy audits the listed actions per entity and drops omitted field names.
func NewAuditPolicy(actions map[string][]AuditAction, omittedFields []string) AuditPolicy {
	p := AuditPolicy{
		actions: make(map[string]map[AuditAction]struct{}, len(actions)),
		omitted: make(map[string]struct{}, len(omittedFields)),
	}
	for entity, list := range actions {
		set := make(map[AuditAction]struct{}, len(list))
		for _, a := range list {
			set[a] = struct{}{}
		}
		p.actions[entity] = set
	}
	for _, f := range omittedFields {
		p.omitted[f] = struct{}{}
	}
	return p
}

// Decide returns the record to write and true, or false when the change is
// not audited. Unchanged and omitted fields are dropped; an update that
// changes nothing else is not audited. Fields are sorted by name.
func (p AuditPolicy) Decide(change EntityChange) (AuditRecord, bool) {
	if _, ok := p.actions[change.Entity][change.Action]; !ok {
		return AuditRecord{}, false
	}

	fields := make([]AuditedField, 0, len(change.Fields))
	for name, fc := range change.Fields {
		if _, skip := p.omitted[name]; skip {
			continue
		}
		if change.Action != AuditActionCreate && reflect.DeepEqual(fc.Old, fc.New) {
			continue
		}
		fields = append(fields, AuditedField{Name: name, Old: fc.Old, New: fc.New})
	}
	if len(fields) == 0 && change.Action != AuditActionCreate {
		return AuditRecord{}, false
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })

	return AuditRecord{
		Entity:    change.Entity,
		EntityID:  change.EntityID,
		Action:    change.Action,
		Actor:     change.Actor,
		Automatic: change.Automatic,
		Fields:    fields,
		At:        change.At.UTC(),
	}, true
}
