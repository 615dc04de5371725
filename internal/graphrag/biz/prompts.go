package biz

import (
	"strings"
)

// FallbackContext 检索不可用时的兜底上下文。
const FallbackContext = "检索服务暂时不可用。"

// ApologyAnswer 生成失败时的回答。
const ApologyAnswer = "抱歉，生成回答时出现错误。"

const extractionSystemPrompt = `你是一个知识图谱实体抽取助手。请从用户问题中抽取人物、组织、地点、产品、事件等命名实体。

只输出 JSON，不要输出任何解释，格式如下：
{"entities": ["实体1", "实体2"]}

如果没有实体，输出 {"entities": []}。`

const generationSystemPrompt = `你是一个专业的 AI 助手。请根据提供的上下文回答用户的问题。

【上下文信息】
{{context}}

【回答要求】
1. 在有上下文信息的情况下，尽量基于上下文，不要编造信息，不要在回答中体现你有上下文信息，可以补充你的相关知识。
2. 如果上下文包含知识图谱关系（如 A -> B），不要在回答中直接罗列，尽量自然地融入回答中。
3. 如果上下文不足以回答问题，可以根据你的知识来回答，但是不要编造信息。`

const validationSystemPrompt = `你是一个严格的评分员。请评估 AI 的回答。

请输出 JSON 格式，字段说明：
- is_valid: bool (是否完全通过)
- reason: str (理由)
- action: str (必须是以下三个字符串之一)
    - "pass": 回答完美，无需修改，哪怕检索不成功，生成的答案根据你的知识判断正确即可。
    - "retry_retrieval": 在回答有问题的前提下，问题大概率来源于检索失误，需要重新检索。
    - "retry_generation": 在回答有问题的前提下，上下文里有答案，但 AI 没写好（有幻觉、逻辑错误、格式不对），需要重新生成。

只输出一个 JSON 对象，不要包含其他字段，例如：
{"is_valid": true, "reason": "回答准确", "action": "pass"}`

func generationPrompt(context string) string {
	return strings.ReplaceAll(generationSystemPrompt, "{{context}}", context)
}

func retryFeedback(reason string) string {
	return "【上次回答未通过校验】" + reason + "\n请根据以上反馈改进回答。"
}

func validationUserPrompt(context, question, answer string) string {
	var sb strings.Builder
	sb.WriteString("【上下文】\n")
	sb.WriteString(context)
	sb.WriteString("\n\n【用户问题】\n")
	sb.WriteString(question)
	sb.WriteString("\n\n【AI 回答】\n")
	sb.WriteString(answer)
	return sb.String()
}

// firstJSONObject 返回文本中第一个完整的 JSON 对象，容忍代码块和前后缀文字。
func firstJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
