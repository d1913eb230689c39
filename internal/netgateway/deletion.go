package netgateway

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// DeletePhase is the state of a gateway deletion.
type DeletePhase int

// Deletion phases. Confirmed and Failed are terminal.
const (
	PhaseRequested DeletePhase = iota
	PhasePolling
	PhaseConfirmed
	PhaseFailed
)

func (p DeletePhase) String() string {
	switch p {
	case PhaseRequested:
		return "requested"
	case PhasePolling:
		return "polling"
	case PhaseConfirmed:
		return "confirmed"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// GatewayDeletion deletes one gateway and confirms the service has
// forgotten it. It is a scheduler.Task: every Step performs at most one
// remote call, and the runner decides when to resume it.
type GatewayDeletion struct {
	api   gatewayAPI
	id    string
	phase DeletePhase
	err   error
	log   zerolog.Logger
}

// newGatewayDeletion starts a deletion of the gateway with the given id.
// An empty id means the gateway was never created.
func newGatewayDeletion(api gatewayAPI, id string, log zerolog.Logger) *GatewayDeletion {
	return &GatewayDeletion{api: api, id: id, phase: PhaseRequested, log: log}
}

// Phase returns the current phase.
func (d *GatewayDeletion) Phase() DeletePhase {
	return d.phase
}

// Step advances the deletion by one tick.
func (d *GatewayDeletion) Step(ctx context.Context) (bool, error) {
	switch d.phase {
	case PhaseRequested:
		d.request(ctx)
	case PhasePolling:
		d.poll(ctx)
	}
	switch d.phase {
	case PhaseConfirmed:
		return true, nil
	case PhaseFailed:
		return true, d.err
	default:
		return false, nil
	}
}

// request issues the delete call and decides whether confirmation is
// needed.
func (d *GatewayDeletion) request(ctx context.Context) {
	if d.id == "" {
		d.transition(PhaseConfirmed)
		return
	}

	err := d.api.DeleteGateway(ctx, d.id)
	switch classifyRemote(err) {
	case outcomeOK:
		d.transition(PhasePolling)
	case outcomeNotFound:
		d.log.Info().Str("id", d.id).Msg("gateway already deleted")
		d.transition(PhaseConfirmed)
	case outcomeAmbiguous:
		d.reconcile(ctx, err)
	default:
		d.fail(err)
	}
}

// reconcile resolves an ambiguous delete failure: the service reports an
// error when the gateway disappeared through a cascade, so only a gateway
// that is still listed makes the failure genuine.
func (d *GatewayDeletion) reconcile(ctx context.Context, deleteErr error) {
	exists, err := gatewayListed(ctx, d.api, d.id)
	if err != nil {
		d.fail(fmt.Errorf("%w (reconciling with gateway listing: %v)", deleteErr, err))
		return
	}
	if exists {
		d.fail(deleteErr)
		return
	}
	d.log.Info().Str("id", d.id).Err(deleteErr).Msg("delete failed but gateway is gone; treating as deleted")
	d.transition(PhaseConfirmed)
}

// poll checks once whether the gateway is still listed.
func (d *GatewayDeletion) poll(ctx context.Context) {
	exists, err := gatewayListed(ctx, d.api, d.id)
	if err != nil {
		d.fail(fmt.Errorf("confirming deletion of gateway %q: %w", d.id, err))
		return
	}
	if !exists {
		d.transition(PhaseConfirmed)
		return
	}
	d.log.Debug().Str("id", d.id).Msg("gateway still listed, waiting")
}

func (d *GatewayDeletion) fail(err error) {
	d.err = err
	d.transition(PhaseFailed)
}

func (d *GatewayDeletion) transition(to DeletePhase) {
	d.log.Debug().Str("id", d.id).Stringer("from", d.phase).Stringer("to", to).Msg("gateway deletion")
	d.phase = to
}

// gatewayListed reports whether a gateway with exactly this id is listed.
func gatewayListed(ctx context.Context, api gatewayAPI, id string) (bool, error) {
	gateways, err := api.ListGateways(ctx, ListFilter{ID: id})
	if err != nil {
		return false, err
	}
	for _, gw := range gateways {
		if gw.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// disconnect tears down a gateway connection. A disconnect that fails
// ambiguously is reconciled against the listing of the connection's
// gateway: the failure stands only if the connection's port is still
// attached.
func disconnect(ctx context.Context, api gatewayAPI, conn ConnectionIdentity, log zerolog.Logger) error {
	err := api.DisconnectNetwork(ctx, conn.GatewayID, conn.request())
	switch classifyRemote(err) {
	case outcomeOK:
		return nil
	case outcomeNotFound:
		log.Info().Str("gateway", conn.GatewayID).Msg("connection already removed")
		return nil
	case outcomeAmbiguous:
	default:
		return err
	}

	attached, listErr := connectionAttached(ctx, api, conn)
	if listErr != nil {
		return fmt.Errorf("%w (reconciling with gateway listing: %v)", err, listErr)
	}
	if attached {
		return err
	}
	log.Info().Str("gateway", conn.GatewayID).Err(err).Msg("disconnect failed but port is gone; treating as disconnected")
	return nil
}

// connectionAttached scans the connection's gateway for its port. Without
// a recorded port id it matches on the segmentation instead.
func connectionAttached(ctx context.Context, api gatewayAPI, conn ConnectionIdentity) (bool, error) {
	gateways, err := api.ListGateways(ctx, ListFilter{ID: conn.GatewayID})
	if err != nil {
		return false, err
	}
	for _, gw := range gateways {
		if gw.ID != conn.GatewayID {
			continue
		}
		for _, port := range gw.Ports {
			if portMatches(port, conn) {
				return true, nil
			}
		}
	}
	return false, nil
}

func portMatches(port GatewayPort, conn ConnectionIdentity) bool {
	if conn.PortID != "" {
		return port.PortID == conn.PortID
	}
	if port.SegmentationType != conn.SegmentationType {
		return false
	}
	if port.SegmentationID == nil || conn.SegmentationID == nil {
		return port.SegmentationID == nil && conn.SegmentationID == nil
	}
	return *port.SegmentationID == *conn.SegmentationID
}
