// Package main MerchantGate API
//
//	@title						MerchantGate API
//	@version					1.0
//	@description				Uniform payment gateway API. One call surface across card processors and wallet providers.
//
//	@host						localhost:8080
//	@BasePath					/api/v1
//
//	@securityDefinitions.apikey	APIKeyAuth
//	@in							header
//	@name						X-API-Key
//	@description				Merchant API key authentication.
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"
//
//	@tag.name					Gateways
//	@tag.description			Gateway operations: purchase, authorize, capture, refund, void, credit, store, verify
//
//	@tag.name					Transactions
//	@tag.description			Recorded transaction lookup
//
//	@tag.name					Auth
//	@tag.description			API key to bearer token exchange
package main
