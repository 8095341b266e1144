package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is a user-facing status notification.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Engine is the engine the event concerns, if any.
	Engine string `json:"engine,omitempty"`

	// SessionID is the analysis session, if any.
	SessionID string `json:"session_id,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants.
const (
	EventTypeStatus          = "status"
	EventTypeEngineStarted   = "engine.started"
	EventTypeEngineStopped   = "engine.stopped"
	EventTypeOptionsReloaded = "engine.options_reloaded"
	EventTypeSessionFinished = "session.finished"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher fans status events out to subscribers. It satisfies the
// engine status sink through ShowStatus.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	filters     []EventFilter
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.EnableAsync {
		ep.buffer = make(chan Event, cfg.BufferSize)
		ep.wg.Add(1)
		go ep.processEvents()
	}

	return ep, nil
}

// Publish publishes an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Level == "" {
		event.Level = EventLevelInfo
	}

	ep.mu.RLock()
	for _, filter := range ep.filters {
		if !filter(event) {
			ep.mu.RUnlock()
			return nil
		}
	}
	ep.mu.RUnlock()

	if ep.config.EnableAsync {
		select {
		case ep.buffer <- event:
			return nil
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	ep.deliverEvent(event)
	return nil
}

// ShowStatus publishes msg as an error-level status event.
func (ep *EventPublisher) ShowStatus(msg string) {
	_ = ep.Publish(Event{
		Type:    EventTypeStatus,
		Message: msg,
		Level:   EventLevelError,
	})
}

// PublishEngineStarted publishes an engine started event.
func (ep *EventPublisher) PublishEngineStarted(engine, id string) error {
	return ep.Publish(Event{
		Type:    EventTypeEngineStarted,
		Engine:  engine,
		Message: fmt.Sprintf("Engine %s started (%s)", engine, id),
		Data: map[string]interface{}{
			"id": id,
		},
	})
}

// PublishEngineStopped publishes an engine stopped event.
func (ep *EventPublisher) PublishEngineStopped(engine string) error {
	return ep.Publish(Event{
		Type:    EventTypeEngineStopped,
		Engine:  engine,
		Message: fmt.Sprintf("Engine %s stopped", engine),
	})
}

// PublishOptionsReloaded publishes an event after options were re-sent to a running engine.
func (ep *EventPublisher) PublishOptionsReloaded(engine string, count int) error {
	return ep.Publish(Event{
		Type:    EventTypeOptionsReloaded,
		Engine:  engine,
		Message: fmt.Sprintf("Reloaded %d options for %s", count, engine),
		Data: map[string]interface{}{
			"count": count,
		},
	})
}

// PublishSessionFinished publishes an analysis session summary.
func (ep *EventPublisher) PublishSessionFinished(engine, sessionID string, lines int, duration time.Duration) error {
	return ep.Publish(Event{
		Type:      EventTypeSessionFinished,
		Engine:    engine,
		SessionID: sessionID,
		Message:   fmt.Sprintf("Analysis with %s finished after %s", engine, duration.Round(time.Millisecond)),
		Data: map[string]interface{}{
			"lines":    lines,
			"duration": duration.Seconds(),
		},
	})
}

// Subscribe adds a new event subscriber. filter may be nil.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global event filter.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

// processEvents delivers buffered events until shutdown.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	for {
		select {
		case event := <-ep.buffer:
			ep.deliverEvent(event)
		case <-ep.ctx.Done():
			for {
				select {
				case event := <-ep.buffer:
					ep.deliverEvent(event)
				default:
					return
				}
			}
		}
	}
}

// deliverEvent delivers an event to all matching subscribers in order.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}
		entry.subscriber(event)
	}
}

// Shutdown drains pending events and stops the publisher.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled {
		return nil
	}

	ep.cancel()

	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByEngine creates a filter that only allows events for one engine.
func FilterByEngine(engine string) EventFilter {
	return func(event Event) bool {
		return event.Engine == engine
	}
}
