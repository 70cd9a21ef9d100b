// Hand-maintained bindings for proto/registry.proto. See doc.go.

package proto

type StatusType int32

const (
	StatusType_CONNECTED    StatusType = 0
	StatusType_DISCONNECTED StatusType = 1
	StatusType_ERROR        StatusType = 2
)

var StatusType_name = map[int32]string{
	0: "CONNECTED",
	1: "DISCONNECTED",
	2: "ERROR",
}

var StatusType_value = map[string]int32{
	"CONNECTED":    0,
	"DISCONNECTED": 1,
	"ERROR":        2,
}

func (x StatusType) String() string {
	if s, ok := StatusType_name[int32(x)]; ok {
		return s
	}
	return "UNKNOWN"
}

type StreamType int32

const (
	StreamType_UNARY                   StreamType = 0
	StreamType_CLIENT_STREAMING        StreamType = 1
	StreamType_SERVER_STREAMING        StreamType = 2
	StreamType_BIDIRECTIONAL_STREAMING StreamType = 3
)

var StreamType_name = map[int32]string{
	0: "UNARY",
	1: "CLIENT_STREAMING",
	2: "SERVER_STREAMING",
	3: "BIDIRECTIONAL_STREAMING",
}

var StreamType_value = map[string]int32{
	"UNARY":                   0,
	"CLIENT_STREAMING":        1,
	"SERVER_STREAMING":        2,
	"BIDIRECTIONAL_STREAMING": 3,
}

func (x StreamType) String() string {
	if s, ok := StreamType_name[int32(x)]; ok {
		return s
	}
	return "UNKNOWN"
}

type SubscriptionAction int32

const (
	SubscriptionAction_SUBSCRIBE   SubscriptionAction = 0
	SubscriptionAction_UNSUBSCRIBE SubscriptionAction = 1
)

var SubscriptionAction_name = map[int32]string{
	0: "SUBSCRIBE",
	1: "UNSUBSCRIBE",
}

var SubscriptionAction_value = map[string]int32{
	"SUBSCRIBE":   0,
	"UNSUBSCRIBE": 1,
}

func (x SubscriptionAction) String() string {
	if s, ok := SubscriptionAction_name[int32(x)]; ok {
		return s
	}
	return "UNKNOWN"
}

type RegisterRequest struct {
	ApiKey   string   `protobuf:"bytes,1,opt,name=api_key,json=apiKey,proto3" json:"api_key,omitempty"`
	Address  string   `protobuf:"bytes,2,opt,name=address,proto3" json:"address,omitempty"`
	Services []string `protobuf:"bytes,3,rep,name=services,proto3" json:"services,omitempty"`
}

func (m *RegisterRequest) Reset()         { *m = RegisterRequest{} }
func (m *RegisterRequest) String() string { return messageString(m) }
func (*RegisterRequest) ProtoMessage()    {}

func (m *RegisterRequest) GetApiKey() string {
	if m != nil {
		return m.ApiKey
	}
	return ""
}

func (m *RegisterRequest) GetAddress() string {
	if m != nil {
		return m.Address
	}
	return ""
}

func (m *RegisterRequest) GetServices() []string {
	if m != nil {
		return m.Services
	}
	return nil
}

type RegisterResponse struct {
	Success bool   `protobuf:"varint,1,opt,name=success,proto3" json:"success,omitempty"`
	Message string `protobuf:"bytes,2,opt,name=message,proto3" json:"message,omitempty"`
}

func (m *RegisterResponse) Reset()         { *m = RegisterResponse{} }
func (m *RegisterResponse) String() string { return messageString(m) }
func (*RegisterResponse) ProtoMessage()    {}

func (m *RegisterResponse) GetSuccess() bool {
	if m != nil {
		return m.Success
	}
	return false
}

func (m *RegisterResponse) GetMessage() string {
	if m != nil {
		return m.Message
	}
	return ""
}

// ConnectionMessage is the tunnel frame: exactly one variant per message.
type ConnectionMessage struct {
	// Types that are valid to be assigned to MessageType:
	//	*ConnectionMessage_Register
	//	*ConnectionMessage_Status
	//	*ConnectionMessage_Heartbeat
	//	*ConnectionMessage_Request
	//	*ConnectionMessage_Response
	//	*ConnectionMessage_Event
	//	*ConnectionMessage_Subscription
	MessageType isConnectionMessage_MessageType `protobuf_oneof:"message_type"`
}

func (m *ConnectionMessage) Reset()         { *m = ConnectionMessage{} }
func (m *ConnectionMessage) String() string { return messageString(m) }
func (*ConnectionMessage) ProtoMessage()    {}

type isConnectionMessage_MessageType interface {
	isConnectionMessage_MessageType()
}

type ConnectionMessage_Register struct {
	Register *ConnectionRegister `protobuf:"bytes,1,opt,name=register,proto3,oneof"`
}

type ConnectionMessage_Status struct {
	Status *ConnectionStatus `protobuf:"bytes,2,opt,name=status,proto3,oneof"`
}

type ConnectionMessage_Heartbeat struct {
	Heartbeat *HeartbeatMessage `protobuf:"bytes,3,opt,name=heartbeat,proto3,oneof"`
}

type ConnectionMessage_Request struct {
	Request *ForwardRequest `protobuf:"bytes,4,opt,name=request,proto3,oneof"`
}

type ConnectionMessage_Response struct {
	Response *ForwardResponse `protobuf:"bytes,5,opt,name=response,proto3,oneof"`
}

type ConnectionMessage_Event struct {
	Event *EventMessage `protobuf:"bytes,6,opt,name=event,proto3,oneof"`
}

type ConnectionMessage_Subscription struct {
	Subscription *SubscriptionRequest `protobuf:"bytes,7,opt,name=subscription,proto3,oneof"`
}

func (*ConnectionMessage_Register) isConnectionMessage_MessageType()     {}
func (*ConnectionMessage_Status) isConnectionMessage_MessageType()       {}
func (*ConnectionMessage_Heartbeat) isConnectionMessage_MessageType()    {}
func (*ConnectionMessage_Request) isConnectionMessage_MessageType()      {}
func (*ConnectionMessage_Response) isConnectionMessage_MessageType()     {}
func (*ConnectionMessage_Event) isConnectionMessage_MessageType()        {}
func (*ConnectionMessage_Subscription) isConnectionMessage_MessageType() {}

func (m *ConnectionMessage) GetMessageType() isConnectionMessage_MessageType {
	if m != nil {
		return m.MessageType
	}
	return nil
}

func (m *ConnectionMessage) GetRegister() *ConnectionRegister {
	if x, ok := m.GetMessageType().(*ConnectionMessage_Register); ok {
		return x.Register
	}
	return nil
}

func (m *ConnectionMessage) GetStatus() *ConnectionStatus {
	if x, ok := m.GetMessageType().(*ConnectionMessage_Status); ok {
		return x.Status
	}
	return nil
}

func (m *ConnectionMessage) GetHeartbeat() *HeartbeatMessage {
	if x, ok := m.GetMessageType().(*ConnectionMessage_Heartbeat); ok {
		return x.Heartbeat
	}
	return nil
}

func (m *ConnectionMessage) GetRequest() *ForwardRequest {
	if x, ok := m.GetMessageType().(*ConnectionMessage_Request); ok {
		return x.Request
	}
	return nil
}

func (m *ConnectionMessage) GetResponse() *ForwardResponse {
	if x, ok := m.GetMessageType().(*ConnectionMessage_Response); ok {
		return x.Response
	}
	return nil
}

func (m *ConnectionMessage) GetEvent() *EventMessage {
	if x, ok := m.GetMessageType().(*ConnectionMessage_Event); ok {
		return x.Event
	}
	return nil
}

func (m *ConnectionMessage) GetSubscription() *SubscriptionRequest {
	if x, ok := m.GetMessageType().(*ConnectionMessage_Subscription); ok {
		return x.Subscription
	}
	return nil
}

// XXX_OneofWrappers is for the internal use of the proto package.
func (*ConnectionMessage) XXX_OneofWrappers() []interface{} {
	return []interface{}{
		(*ConnectionMessage_Register)(nil),
		(*ConnectionMessage_Status)(nil),
		(*ConnectionMessage_Heartbeat)(nil),
		(*ConnectionMessage_Request)(nil),
		(*ConnectionMessage_Response)(nil),
		(*ConnectionMessage_Event)(nil),
		(*ConnectionMessage_Subscription)(nil),
	}
}

type ConnectionRegister struct {
	ApiKey   string   `protobuf:"bytes,1,opt,name=api_key,json=apiKey,proto3" json:"api_key,omitempty"`
	Services []string `protobuf:"bytes,2,rep,name=services,proto3" json:"services,omitempty"`
	// Empty on first connect; the gateway assigns one. Reconnecting clients
	// send their previous id to keep it sticky.
	ConnectionId string `protobuf:"bytes,3,opt,name=connection_id,json=connectionId,proto3" json:"connection_id,omitempty"`
}

func (m *ConnectionRegister) Reset()         { *m = ConnectionRegister{} }
func (m *ConnectionRegister) String() string { return messageString(m) }
func (*ConnectionRegister) ProtoMessage()    {}

func (m *ConnectionRegister) GetApiKey() string {
	if m != nil {
		return m.ApiKey
	}
	return ""
}

func (m *ConnectionRegister) GetServices() []string {
	if m != nil {
		return m.Services
	}
	return nil
}

func (m *ConnectionRegister) GetConnectionId() string {
	if m != nil {
		return m.ConnectionId
	}
	return ""
}

type ConnectionStatus struct {
	Status       StatusType `protobuf:"varint,1,opt,name=status,proto3,enum=registry.StatusType" json:"status,omitempty"`
	Message      string     `protobuf:"bytes,2,opt,name=message,proto3" json:"message,omitempty"`
	ConnectionId string     `protobuf:"bytes,3,opt,name=connection_id,json=connectionId,proto3" json:"connection_id,omitempty"`
}

func (m *ConnectionStatus) Reset()         { *m = ConnectionStatus{} }
func (m *ConnectionStatus) String() string { return messageString(m) }
func (*ConnectionStatus) ProtoMessage()    {}

func (m *ConnectionStatus) GetStatus() StatusType {
	if m != nil {
		return m.Status
	}
	return StatusType_CONNECTED
}

func (m *ConnectionStatus) GetMessage() string {
	if m != nil {
		return m.Message
	}
	return ""
}

func (m *ConnectionStatus) GetConnectionId() string {
	if m != nil {
		return m.ConnectionId
	}
	return ""
}

type HeartbeatMessage struct {
	ConnectionId string `protobuf:"bytes,1,opt,name=connection_id,json=connectionId,proto3" json:"connection_id,omitempty"`
	Timestamp    int64  `protobuf:"varint,2,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

func (m *HeartbeatMessage) Reset()         { *m = HeartbeatMessage{} }
func (m *HeartbeatMessage) String() string { return messageString(m) }
func (*HeartbeatMessage) ProtoMessage()    {}

func (m *HeartbeatMessage) GetConnectionId() string {
	if m != nil {
		return m.ConnectionId
	}
	return ""
}

func (m *HeartbeatMessage) GetTimestamp() int64 {
	if m != nil {
		return m.Timestamp
	}
	return 0
}

// StreamingInfo tags a ForwardRequest with its position in a request stream.
type StreamingInfo struct {
	StreamType     StreamType `protobuf:"varint,1,opt,name=stream_type,json=streamType,proto3,enum=registry.StreamType" json:"stream_type,omitempty"`
	IsStreamEnd    bool       `protobuf:"varint,2,opt,name=is_stream_end,json=isStreamEnd,proto3" json:"is_stream_end,omitempty"`
	SequenceNumber int64      `protobuf:"varint,3,opt,name=sequence_number,json=sequenceNumber,proto3" json:"sequence_number,omitempty"`
	ChunkSize      int64      `protobuf:"varint,4,opt,name=chunk_size,json=chunkSize,proto3" json:"chunk_size,omitempty"`
}

func (m *StreamingInfo) Reset()         { *m = StreamingInfo{} }
func (m *StreamingInfo) String() string { return messageString(m) }
func (*StreamingInfo) ProtoMessage()    {}

func (m *StreamingInfo) GetStreamType() StreamType {
	if m != nil {
		return m.StreamType
	}
	return StreamType_UNARY
}

func (m *StreamingInfo) GetIsStreamEnd() bool {
	if m != nil {
		return m.IsStreamEnd
	}
	return false
}

func (m *StreamingInfo) GetSequenceNumber() int64 {
	if m != nil {
		return m.SequenceNumber
	}
	return 0
}

func (m *StreamingInfo) GetChunkSize() int64 {
	if m != nil {
		return m.ChunkSize
	}
	return 0
}

// ResponseStreamInfo tags a ForwardResponse chunk for reassembly.
// TotalSize is 0 when unknown.
type ResponseStreamInfo struct {
	IsStreamed   bool  `protobuf:"varint,1,opt,name=is_streamed,json=isStreamed,proto3" json:"is_streamed,omitempty"`
	ChunkIndex   int64 `protobuf:"varint,2,opt,name=chunk_index,json=chunkIndex,proto3" json:"chunk_index,omitempty"`
	IsFinalChunk bool  `protobuf:"varint,3,opt,name=is_final_chunk,json=isFinalChunk,proto3" json:"is_final_chunk,omitempty"`
	ChunkSize    int64 `protobuf:"varint,4,opt,name=chunk_size,json=chunkSize,proto3" json:"chunk_size,omitempty"`
	TotalSize    int64 `protobuf:"varint,5,opt,name=total_size,json=totalSize,proto3" json:"total_size,omitempty"`
}

func (m *ResponseStreamInfo) Reset()         { *m = ResponseStreamInfo{} }
func (m *ResponseStreamInfo) String() string { return messageString(m) }
func (*ResponseStreamInfo) ProtoMessage()    {}

func (m *ResponseStreamInfo) GetIsStreamed() bool {
	if m != nil {
		return m.IsStreamed
	}
	return false
}

func (m *ResponseStreamInfo) GetChunkIndex() int64 {
	if m != nil {
		return m.ChunkIndex
	}
	return 0
}

func (m *ResponseStreamInfo) GetIsFinalChunk() bool {
	if m != nil {
		return m.IsFinalChunk
	}
	return false
}

func (m *ResponseStreamInfo) GetChunkSize() int64 {
	if m != nil {
		return m.ChunkSize
	}
	return 0
}

func (m *ResponseStreamInfo) GetTotalSize() int64 {
	if m != nil {
		return m.TotalSize
	}
	return 0
}

type ForwardRequest struct {
	RequestId      string            `protobuf:"bytes,1,opt,name=request_id,json=requestId,proto3" json:"request_id,omitempty"`
	MethodPath     string            `protobuf:"bytes,2,opt,name=method_path,json=methodPath,proto3" json:"method_path,omitempty"`
	Headers        map[string]string `protobuf:"bytes,3,rep,name=headers,proto3" json:"headers,omitempty" protobuf_key:"bytes,1,opt,name=key,proto3" protobuf_val:"bytes,2,opt,name=value,proto3"`
	Payload        []byte            `protobuf:"bytes,4,opt,name=payload,proto3" json:"payload,omitempty"`
	TimeoutSeconds int32             `protobuf:"varint,5,opt,name=timeout_seconds,json=timeoutSeconds,proto3" json:"timeout_seconds,omitempty"`
	StreamingInfo  *StreamingInfo    `protobuf:"bytes,6,opt,name=streaming_info,json=streamingInfo,proto3" json:"streaming_info,omitempty"`
}

func (m *ForwardRequest) Reset()         { *m = ForwardRequest{} }
func (m *ForwardRequest) String() string { return messageString(m) }
func (*ForwardRequest) ProtoMessage()    {}

func (m *ForwardRequest) GetRequestId() string {
	if m != nil {
		return m.RequestId
	}
	return ""
}

func (m *ForwardRequest) GetMethodPath() string {
	if m != nil {
		return m.MethodPath
	}
	return ""
}

func (m *ForwardRequest) GetHeaders() map[string]string {
	if m != nil {
		return m.Headers
	}
	return nil
}

func (m *ForwardRequest) GetPayload() []byte {
	if m != nil {
		return m.Payload
	}
	return nil
}

func (m *ForwardRequest) GetTimeoutSeconds() int32 {
	if m != nil {
		return m.TimeoutSeconds
	}
	return 0
}

func (m *ForwardRequest) GetStreamingInfo() *StreamingInfo {
	if m != nil {
		return m.StreamingInfo
	}
	return nil
}

type ForwardResponse struct {
	RequestId          string              `protobuf:"bytes,1,opt,name=request_id,json=requestId,proto3" json:"request_id,omitempty"`
	StatusCode         int32               `protobuf:"varint,2,opt,name=status_code,json=statusCode,proto3" json:"status_code,omitempty"`
	Headers            map[string]string   `protobuf:"bytes,3,rep,name=headers,proto3" json:"headers,omitempty" protobuf_key:"bytes,1,opt,name=key,proto3" protobuf_val:"bytes,2,opt,name=value,proto3"`
	Payload            []byte              `protobuf:"bytes,4,opt,name=payload,proto3" json:"payload,omitempty"`
	ErrorMessage       string              `protobuf:"bytes,5,opt,name=error_message,json=errorMessage,proto3" json:"error_message,omitempty"`
	StreamingInfo      *StreamingInfo      `protobuf:"bytes,6,opt,name=streaming_info,json=streamingInfo,proto3" json:"streaming_info,omitempty"`
	ResponseStreamInfo *ResponseStreamInfo `protobuf:"bytes,7,opt,name=response_stream_info,json=responseStreamInfo,proto3" json:"response_stream_info,omitempty"`
}

func (m *ForwardResponse) Reset()         { *m = ForwardResponse{} }
func (m *ForwardResponse) String() string { return messageString(m) }
func (*ForwardResponse) ProtoMessage()    {}

func (m *ForwardResponse) GetRequestId() string {
	if m != nil {
		return m.RequestId
	}
	return ""
}

func (m *ForwardResponse) GetStatusCode() int32 {
	if m != nil {
		return m.StatusCode
	}
	return 0
}

func (m *ForwardResponse) GetHeaders() map[string]string {
	if m != nil {
		return m.Headers
	}
	return nil
}

func (m *ForwardResponse) GetPayload() []byte {
	if m != nil {
		return m.Payload
	}
	return nil
}

func (m *ForwardResponse) GetErrorMessage() string {
	if m != nil {
		return m.ErrorMessage
	}
	return ""
}

func (m *ForwardResponse) GetStreamingInfo() *StreamingInfo {
	if m != nil {
		return m.StreamingInfo
	}
	return nil
}

func (m *ForwardResponse) GetResponseStreamInfo() *ResponseStreamInfo {
	if m != nil {
		return m.ResponseStreamInfo
	}
	return nil
}

type EventMessage struct {
	EventId     string            `protobuf:"bytes,1,opt,name=event_id,json=eventId,proto3" json:"event_id,omitempty"`
	EventType   string            `protobuf:"bytes,2,opt,name=event_type,json=eventType,proto3" json:"event_type,omitempty"`
	PublisherId string            `protobuf:"bytes,3,opt,name=publisher_id,json=publisherId,proto3" json:"publisher_id,omitempty"`
	Payload     []byte            `protobuf:"bytes,4,opt,name=payload,proto3" json:"payload,omitempty"`
	Timestamp   int64             `protobuf:"varint,5,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
	Metadata    map[string]string `protobuf:"bytes,6,rep,name=metadata,proto3" json:"metadata,omitempty" protobuf_key:"bytes,1,opt,name=key,proto3" protobuf_val:"bytes,2,opt,name=value,proto3"`
}

func (m *EventMessage) Reset()         { *m = EventMessage{} }
func (m *EventMessage) String() string { return messageString(m) }
func (*EventMessage) ProtoMessage()    {}

func (m *EventMessage) GetEventId() string {
	if m != nil {
		return m.EventId
	}
	return ""
}

func (m *EventMessage) GetEventType() string {
	if m != nil {
		return m.EventType
	}
	return ""
}

func (m *EventMessage) GetPublisherId() string {
	if m != nil {
		return m.PublisherId
	}
	return ""
}

func (m *EventMessage) GetPayload() []byte {
	if m != nil {
		return m.Payload
	}
	return nil
}

func (m *EventMessage) GetTimestamp() int64 {
	if m != nil {
		return m.Timestamp
	}
	return 0
}

func (m *EventMessage) GetMetadata() map[string]string {
	if m != nil {
		return m.Metadata
	}
	return nil
}

type SubscriptionRequest struct {
	Action       SubscriptionAction `protobuf:"varint,1,opt,name=action,proto3,enum=registry.SubscriptionAction" json:"action,omitempty"`
	EventTypes   []string           `protobuf:"bytes,2,rep,name=event_types,json=eventTypes,proto3" json:"event_types,omitempty"`
	SubscriberId string             `protobuf:"bytes,3,opt,name=subscriber_id,json=subscriberId,proto3" json:"subscriber_id,omitempty"`
}

func (m *SubscriptionRequest) Reset()         { *m = SubscriptionRequest{} }
func (m *SubscriptionRequest) String() string { return messageString(m) }
func (*SubscriptionRequest) ProtoMessage()    {}

func (m *SubscriptionRequest) GetAction() SubscriptionAction {
	if m != nil {
		return m.Action
	}
	return SubscriptionAction_SUBSCRIBE
}

func (m *SubscriptionRequest) GetEventTypes() []string {
	if m != nil {
		return m.EventTypes
	}
	return nil
}

func (m *SubscriptionRequest) GetSubscriberId() string {
	if m != nil {
		return m.SubscriberId
	}
	return ""
}
