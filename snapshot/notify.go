package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
)

// CompletionMessage is published once at the end of every restore, whether
// it committed, failed during commit, or aborted on validation, so operators
// driving bulk imports can wait on a queue instead of polling.
type CompletionMessage struct {
	OK        bool          `json:"ok"`
	Installed map[Kind]int  `json:"installed"`
	Errors    []RecordError `json:"-"`
	ErrorText []string      `json:"errors,omitempty"`
}

func newCompletionMessage(report *Report, restoreErr error) CompletionMessage {
	msg := CompletionMessage{OK: restoreErr == nil && report.OK(), Installed: report.Installed}
	for _, e := range report.Errors {
		msg.ErrorText = append(msg.ErrorText, e.Error())
	}
	if restoreErr != nil {
		msg.ErrorText = append(msg.ErrorText, restoreErr.Error())
	}
	return msg
}

// CompletionNotifier publishes a CompletionMessage to a well-known queue.
// The connection/channel are injected so tests can swap in a fake dialer,
// the same shape the publisher this is grounded on uses.
type CompletionNotifier interface {
	Notify(report *Report, restoreErr error) error
	Close() error
}

// AMQPConnection and AMQPChannel narrow *amqp.Connection/*amqp.Channel down
// to what the notifier needs, so a test dialer never has to implement the
// full client surface.
type AMQPConnection interface {
	Channel() (AMQPChannel, error)
	Close() error
}

type AMQPChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Dialer abstracts amqp.Dial for injection in tests.
type Dialer func(url string) (AMQPConnection, error)

func defaultDialer(url string) (AMQPConnection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return realConnection{conn}, nil
}

type realConnection struct{ *amqp.Connection }

func (c realConnection) Channel() (AMQPChannel, error) { return c.Connection.Channel() }

// amqpNotifier is the production CompletionNotifier: it declares a durable
// queue up front and publishes one JSON message per restore.
type amqpNotifier struct {
	conn      AMQPConnection
	channel   AMQPChannel
	queueName string
}

// NewAMQPNotifier dials url and declares queueName durable, mirroring the
// message-publisher pattern used for flow completion elsewhere in this
// stack: dependency-injected dialer, durable queue, best-effort close.
func NewAMQPNotifier(url, queueName string) (CompletionNotifier, error) {
	return newAMQPNotifierWithDialer(defaultDialer, url, queueName)
}

func newAMQPNotifierWithDialer(dial Dialer, url, queueName string) (CompletionNotifier, error) {
	conn, err := dial(url)
	if err != nil {
		return nil, fmt.Errorf("snapshot: connecting to amqp: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("snapshot: opening amqp channel: %w", err)
	}
	if _, err := channel.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("snapshot: declaring queue %q: %w", queueName, err)
	}
	return &amqpNotifier{conn: conn, channel: channel, queueName: queueName}, nil
}

func (n *amqpNotifier) Notify(report *Report, restoreErr error) error {
	body, err := json.Marshal(newCompletionMessage(report, restoreErr))
	if err != nil {
		return fmt.Errorf("snapshot: marshaling completion message: %w", err)
	}
	return n.channel.Publish("", n.queueName, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

func (n *amqpNotifier) Close() error {
	if n.channel != nil {
		n.channel.Close()
	}
	if n.conn != nil {
		n.conn.Close()
	}
	return nil
}
