package runtime

import (
	"context"

	"github.com/tjfontaine/virthooks/internal/core/domain"
	"github.com/tjfontaine/virthooks/internal/pipeline"
)

// Lifecycle-point wrappers for the common hook points. The before_* hooks
// run strict so a fatal hook can veto the operation; the after_* hooks run
// lenient because the operation already happened and faults are only worth
// reporting.

func (e *Engine) runXML(ctx context.Context, point, domxml string, entity domain.EntityConfig, params map[string]string, mode domain.FailureMode) (string, []domain.Diagnostic, error) {
	res, err := e.Run(ctx, pipeline.Request{
		HookPoint: point,
		Payload:   domain.DomainXMLPayload(domxml),
		Entity:    entity,
		Params:    params,
		Mode:      mode,
	})
	if err != nil {
		return "", nil, err
	}
	return res.Payload.Text, res.Diagnostics, nil
}

// BeforeVMStart runs the before_vm_start hooks over the domain description
// and returns the possibly rewritten text.
func (e *Engine) BeforeVMStart(ctx context.Context, domxml string, entity domain.EntityConfig, params map[string]string) (string, error) {
	out, _, err := e.runXML(ctx, domain.BeforeVMStart, domxml, entity, params, domain.ModeStrict)
	return out, err
}

// AfterVMStart runs the after_vm_start hooks. Faults are returned as
// diagnostics, never as an error.
func (e *Engine) AfterVMStart(ctx context.Context, domxml string, entity domain.EntityConfig, params map[string]string) ([]domain.Diagnostic, error) {
	_, diags, err := e.runXML(ctx, domain.AfterVMStart, domxml, entity, params, domain.ModeLenient)
	return diags, err
}

// BeforeVMMigrateSource runs the migration-source hooks on the sending host.
func (e *Engine) BeforeVMMigrateSource(ctx context.Context, domxml string, entity domain.EntityConfig, params map[string]string) (string, error) {
	out, _, err := e.runXML(ctx, domain.BeforeVMMigrateSource, domxml, entity, params, domain.ModeStrict)
	return out, err
}

// AfterVMMigrateSource reports the migration outcome to the sending host's
// hooks.
func (e *Engine) AfterVMMigrateSource(ctx context.Context, domxml string, entity domain.EntityConfig, params map[string]string) ([]domain.Diagnostic, error) {
	_, diags, err := e.runXML(ctx, domain.AfterVMMigrateSource, domxml, entity, params, domain.ModeLenient)
	return diags, err
}

// BeforeVMMigrateDestination runs the migration-destination hooks and
// returns the possibly rewritten domain description used to receive the VM.
func (e *Engine) BeforeVMMigrateDestination(ctx context.Context, domxml string, entity domain.EntityConfig, params map[string]string) (string, error) {
	out, _, err := e.runXML(ctx, domain.BeforeVMMigrateDestination, domxml, entity, params, domain.ModeStrict)
	return out, err
}

// AfterVMMigrateDestination reports the migration outcome on the receiving
// host.
func (e *Engine) AfterVMMigrateDestination(ctx context.Context, domxml string, entity domain.EntityConfig, params map[string]string) ([]domain.Diagnostic, error) {
	_, diags, err := e.runXML(ctx, domain.AfterVMMigrateDestination, domxml, entity, params, domain.ModeLenient)
	return diags, err
}

// BeforeVMHibernate runs the hibernate hooks before the memory image is
// written.
func (e *Engine) BeforeVMHibernate(ctx context.Context, domxml string, entity domain.EntityConfig, params map[string]string) (string, error) {
	out, _, err := e.runXML(ctx, domain.BeforeVMHibernate, domxml, entity, params, domain.ModeStrict)
	return out, err
}

// AfterVMDestroy runs the teardown hooks once the entity is gone.
func (e *Engine) AfterVMDestroy(ctx context.Context, domxml string, entity domain.EntityConfig, params map[string]string) ([]domain.Diagnostic, error) {
	_, diags, err := e.runXML(ctx, domain.AfterVMDestroy, domxml, entity, params, domain.ModeLenient)
	return diags, err
}

// BeforeDeviceCreate runs the device hooks over the device description text.
func (e *Engine) BeforeDeviceCreate(ctx context.Context, devxml string, entity domain.EntityConfig, params map[string]string) (string, error) {
	out, _, err := e.runXML(ctx, domain.BeforeDeviceCreate, devxml, entity, params, domain.ModeStrict)
	return out, err
}
