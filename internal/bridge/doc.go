// Package bridge exposes Q-SYS device adapters on the Gray Logic MQTT bus.
//
// The bridge builds one typed adapter per configured device, binds it to
// its Core through the shared qsys.Directory and translates in both
// directions:
//
//	graylogic/command/qsys/{device}   Core -> bridge   device commands
//	graylogic/ack/qsys/{device}       bridge -> Core   command acknowledgements
//	graylogic/state/qsys/{device}     bridge -> Core   retained device state
//	graylogic/request/qsys/{id}       Core -> bridge   state queries
//	graylogic/response/qsys/{id}      bridge -> Core   query responses
//	graylogic/health/qsys             bridge -> Core   retained health + LWT
//
// Commands per device type:
//
//	router       select_input {input}, set_mute {on}
//	crosspoint   set_mute {on}, set_gain {level}
//	snapshot     load {number}, save {number}
//
// State is published only when a value actually changes.
package bridge
