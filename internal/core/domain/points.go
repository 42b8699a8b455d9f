package domain

// Well-known hook points in the entity lifecycle. Each name is the
// directory of scripts under the configured hooks root.
const (
	BeforeVMStart   = "before_vm_start"
	AfterVMStart    = "after_vm_start"
	BeforeVMCont    = "before_vm_cont"
	AfterVMCont     = "after_vm_cont"
	BeforeVMPause   = "before_vm_pause"
	AfterVMPause    = "after_vm_pause"
	BeforeVMDestroy = "before_vm_destroy"
	AfterVMDestroy  = "after_vm_destroy"

	BeforeVMHibernate   = "before_vm_hibernate"
	AfterVMHibernate    = "after_vm_hibernate"
	BeforeVMDehibernate = "before_vm_dehibernate"
	AfterVMDehibernate  = "after_vm_dehibernate"

	BeforeVMMigrateSource      = "before_vm_migrate_source"
	AfterVMMigrateSource       = "after_vm_migrate_source"
	BeforeVMMigrateDestination = "before_vm_migrate_destination"
	AfterVMMigrateDestination  = "after_vm_migrate_destination"

	BeforeVMSetTicket = "before_vm_set_ticket"
	AfterVMSetTicket  = "after_vm_set_ticket"

	BeforeDeviceCreate  = "before_device_create"
	AfterDeviceCreate   = "after_device_create"
	BeforeDeviceDestroy = "before_device_destroy"
	AfterDeviceDestroy  = "after_device_destroy"

	BeforeVMDefine = "before_vm_define"
	AfterVMDefine  = "after_vm_define"
)
