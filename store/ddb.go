package store

import "github.com/jacentio/stratum/internal/wire"

// Operation dispatch targets for the DynamoDB wire protocol.
const (
	opPutItem     = "DynamoDB_20120810.PutItem"
	opGetItem     = "DynamoDB_20120810.GetItem"
	opQuery       = "DynamoDB_20120810.Query"
	opUpdateItem  = "DynamoDB_20120810.UpdateItem"
	opDeleteItem  = "DynamoDB_20120810.DeleteItem"
	opCreateTable = "DynamoDB_20120810.CreateTable"
)

// Request and response bodies for the wire operations the driver uses.
// Only the fields the driver touches are modeled.

type putItemInput struct {
	TableName                string            `json:"TableName"`
	Item                     wire.Item         `json:"Item"`
	ConditionExpression      string            `json:"ConditionExpression,omitempty"`
	ExpressionAttributeNames map[string]string `json:"ExpressionAttributeNames,omitempty"`
}

type getItemInput struct {
	TableName      string    `json:"TableName"`
	Key            wire.Item `json:"Key"`
	ConsistentRead bool      `json:"ConsistentRead,omitempty"`
}

type getItemOutput struct {
	Item wire.Item `json:"Item"`
}

type queryInput struct {
	TableName                 string            `json:"TableName"`
	KeyConditionExpression    string            `json:"KeyConditionExpression"`
	ExpressionAttributeNames  map[string]string `json:"ExpressionAttributeNames,omitempty"`
	ExpressionAttributeValues wire.Item         `json:"ExpressionAttributeValues,omitempty"`
	ExclusiveStartKey         wire.Item         `json:"ExclusiveStartKey,omitempty"`
}

type queryOutput struct {
	Items            []wire.Item `json:"Items"`
	LastEvaluatedKey wire.Item   `json:"LastEvaluatedKey"`
}

type updateItemInput struct {
	TableName                 string            `json:"TableName"`
	Key                       wire.Item         `json:"Key"`
	UpdateExpression          string            `json:"UpdateExpression"`
	ConditionExpression       string            `json:"ConditionExpression,omitempty"`
	ExpressionAttributeNames  map[string]string `json:"ExpressionAttributeNames,omitempty"`
	ExpressionAttributeValues wire.Item         `json:"ExpressionAttributeValues,omitempty"`
}

type deleteItemInput struct {
	TableName                 string            `json:"TableName"`
	Key                       wire.Item         `json:"Key"`
	ConditionExpression       string            `json:"ConditionExpression,omitempty"`
	ExpressionAttributeNames  map[string]string `json:"ExpressionAttributeNames,omitempty"`
	ExpressionAttributeValues wire.Item         `json:"ExpressionAttributeValues,omitempty"`
}

type attributeDefinition struct {
	AttributeName string `json:"AttributeName"`
	AttributeType string `json:"AttributeType"`
}

type keySchemaElement struct {
	AttributeName string `json:"AttributeName"`
	KeyType       string `json:"KeyType"`
}

type provisionedThroughput struct {
	ReadCapacityUnits  int64 `json:"ReadCapacityUnits"`
	WriteCapacityUnits int64 `json:"WriteCapacityUnits"`
}

type createTableInput struct {
	TableName             string                 `json:"TableName"`
	AttributeDefinitions  []attributeDefinition  `json:"AttributeDefinitions"`
	KeySchema             []keySchemaElement     `json:"KeySchema"`
	BillingMode           string                 `json:"BillingMode"`
	ProvisionedThroughput *provisionedThroughput `json:"ProvisionedThroughput,omitempty"`
}
