package orders

const (
	TopicOrderCreated = "inventory.order.created"
	TopicStockLow     = "inventory.stock.low"
)

// Partition key = order number, so events for one order keep their order.
func PartitionKey(orderNumber string) []byte { return []byte(orderNumber) }
