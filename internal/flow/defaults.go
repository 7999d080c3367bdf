package flow

// defaultData returns the role-appropriate attribute set for a newly
// created node. The returned map is fresh on every call so stores
// never share attribute maps between nodes.
func defaultData(t NodeType) map[string]any {
	switch t {
	case NodeHTTPListener:
		return map[string]any{"port": 8080, "path": "/"}
	case NodeTCPListener:
		return map[string]any{"port": 6661, "framing": "mllp"}
	case NodeFileReader:
		return map[string]any{"directory": "/data/in", "pattern": "*.hl7"}
	case NodeTransformer:
		return map[string]any{"language": "javascript", "script": ""}
	case NodeFilter:
		return map[string]any{"expression": "true"}
	case NodeHL7Decoder:
		return map[string]any{"version": "2.5.1"}
	case NodeHTTPSender:
		return map[string]any{"url": "", "method": "POST"}
	case NodeTCPSender:
		return map[string]any{"host": "", "port": 6662}
	case NodeFileWriter:
		return map[string]any{"directory": "/data/out"}
	case NodeDatabaseWriter:
		return map[string]any{"connectionString": "", "table": ""}
	case NodeConstant:
		return map[string]any{"value": ""}
	case NodeDelay:
		return map[string]any{"durationMs": 1000}
	default:
		return map[string]any{}
	}
}

// duplicateOffset is applied to the position of a duplicated node so
// the copy does not land exactly on the original.
const duplicateOffset = 40.0
