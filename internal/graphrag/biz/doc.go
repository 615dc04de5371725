// Package biz 提供 GraphRAG 服务的业务逻辑层。
//
// 组件按依赖顺序：
//   - Extractor: 用 fast 模型从问题中抽取实体
//   - Matcher: 实体向量相似度匹配并融合排序
//   - Fetcher: 查询匹配实体之间的直接关系
//   - HybridRetriever: 组合以上三者生成检索上下文
//   - Generator / Validator: smart 模型起草回答，strict 模型校验
//   - Orchestrator: RETRIEVE → GENERATE → VALIDATE 状态机，带重试预算和会话检查点
//   - SyncService / HealthService: 知识库同步与依赖探活
package biz
