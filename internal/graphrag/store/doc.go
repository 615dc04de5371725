// Package store 提供 GraphRAG 的向量库与图库适配器。
//
// 向量库：QdrantStore（默认）与 MilvusStore。
// 图库：Neo4jStore（默认）与基于 gorm 的 SQLGraphStore。
// 后端启动失败时使用 Unavailable，调用总是返回 ErrUnavailable。
package store
