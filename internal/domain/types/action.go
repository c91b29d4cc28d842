package types

const (
	ActionRabbitMQConnected       = "rabbitmq_connected"
	ActionRabbitConnectionClosed  = "rabbitmq_connection_closed"
	ActionRabbitConnectionClosing = "rabbitmq_connection_closing"
	ActionRabbitReconnected       = "rabbitmq_reconnection_success"

	ActionDatabaseTransactionFailed = "database_transaction_failed"

	ActionCreateBooking  = "create_booking"
	ActionAdvanceBooking = "advance_booking"
	ActionCancelBooking  = "cancel_booking"
	ActionDispatch       = "dispatch_booking"
	ActionLocationReport = "location_report"
	ActionRelayPublish   = "relay_publish"
)
